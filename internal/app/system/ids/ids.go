// Package ids parses Mongo ObjectIDs out of URL params, query strings and
// request bodies.
package ids

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Param reads the chi URL param name as an ObjectID.
func Param(r *http.Request, name string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	return oid, err == nil
}

// Parse converts hex ids, dropping blanks and duplicates. The first malformed
// id is reported in the error.
func Parse(hexes []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	seen := make(map[primitive.ObjectID]struct{}, len(hexes))
	for _, h := range hexes {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		oid, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid id", h)
		}
		if _, dup := seen[oid]; dup {
			continue
		}
		seen[oid] = struct{}{}
		out = append(out, oid)
	}
	return out, nil
}

// SplitCSV splits a comma list and trims each entry, dropping blanks.
func SplitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Hex renders ids as hex strings.
func Hex(oids []primitive.ObjectID) []string {
	out := make([]string, len(oids))
	for i, id := range oids {
		out[i] = id.Hex()
	}
	return out
}
