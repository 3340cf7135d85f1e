package auditlog

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/storefront/internal/app/store/audit"
	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ServeList handles GET /api/admin/audit.
//
// Filters: category, event_type, user (matches actor or affected user),
// subject, start_date and end_date (YYYY-MM-DD, end date inclusive).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, fields := parseFilter(r)
	if len(fields) > 0 {
		apierr.Invalid(w, fields)
		return
	}
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	events, total, err := h.Events.Query(ctx, filter, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events failed", err, "")
		return
	}

	names, err := h.Users.Names(ctx, peopleIn(events))
	if err != nil {
		h.Log.Warn("audit: resolving names failed; ids only", zap.Error(err))
		names = map[primitive.ObjectID]string{}
	}

	rows := make([]eventRow, 0, len(events))
	for _, e := range events {
		row := eventRow{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			row.ActorID = e.ActorID.Hex()
			row.ActorName = names[*e.ActorID]
		}
		if e.UserID != nil {
			row.UserID = e.UserID.Hex()
			row.UserName = names[*e.UserID]
		}
		if e.SubjectID != nil {
			row.SubjectID = e.SubjectID.Hex()
		}
		rows = append(rows, row)
	}
	jsonutil.OK(w, paging.NewResult(rows, total, page))
}

// peopleIn lists each actor and affected user once, in first-seen order.
func peopleIn(events []audit.Event) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}
	return ids
}

func parseFilter(r *http.Request) (audit.QueryFilter, map[string]string) {
	fields := map[string]string{}
	filter := audit.QueryFilter{
		Category:  strings.ToLower(strings.TrimSpace(query.Get(r, "category"))),
		EventType: strings.TrimSpace(query.Get(r, "event_type")),
	}
	if !validCategory(filter.Category) {
		fields["category"] = "must be one of " + strings.Join(audit.Categories(), ", ")
	}

	for key, dst := range map[string]**primitive.ObjectID{"user": &filter.UserID, "subject": &filter.SubjectID} {
		if v := query.Get(r, key); v != "" {
			oid, err := primitive.ObjectIDFromHex(v)
			if err != nil {
				fields[key] = "must be an id"
				continue
			}
			*dst = &oid
		}
	}

	if v := query.Get(r, "start_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			fields["start_date"] = "must be YYYY-MM-DD"
		} else {
			filter.StartTime = &t
		}
	}
	if v := query.Get(r, "end_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			fields["end_date"] = "must be YYYY-MM-DD"
		} else {
			// End of day
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.EndTime = &end
		}
	}
	return filter, fields
}
