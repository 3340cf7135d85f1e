// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// ResetEmailData holds data for the password reset email.
type ResetEmailData struct {
	SiteName  string
	Name      string
	ResetLink string
	ExpiresIn string // e.g., "1 hour"
}

// BuildResetEmail creates a password reset email with both HTML and text bodies.
func BuildResetEmail(to string, data ResetEmailData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("Reset your %s password", data.SiteName),
		TextBody: buildResetText(data),
		HTMLBody: render(resetHTML, data),
	}
}

func buildResetText(data ResetEmailData) string {
	var buf bytes.Buffer
	if data.Name != "" {
		fmt.Fprintf(&buf, "Hi %s,\n\n", data.Name)
	}
	fmt.Fprintf(&buf, "We received a request to reset your %s password.\n", data.SiteName)
	buf.WriteString("Open this link to choose a new one:\n")
	buf.WriteString(data.ResetLink + "\n\n")
	fmt.Fprintf(&buf, "The link expires in %s and can be used once.\n\n", data.ExpiresIn)
	buf.WriteString("If you did not ask for this, you can safely ignore this email.\n")
	return buf.String()
}

// ContactEmailData is a message submitted through the contact form.
type ContactEmailData struct {
	SiteName string
	Name     string
	Email    string
	Subject  string
	Message  string
}

// BuildContactEmail creates the notification sent to the shop's contact address.
// Replies go to the sender.
func BuildContactEmail(to string, data ContactEmailData) Email {
	subject := data.Subject
	if subject == "" {
		subject = "New message"
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\n\n", data.Name, data.Email)
	buf.WriteString(data.Message + "\n")
	return Email{
		To:       to,
		ReplyTo:  data.Email,
		Subject:  fmt.Sprintf("[%s contact] %s", data.SiteName, subject),
		TextBody: buf.String(),
	}
}

// OrderEmailLine is one line of an order confirmation.
type OrderEmailLine struct {
	Title    string
	Quantity int
	Price    string
}

// OrderEmailData holds data for the payment confirmation email.
type OrderEmailData struct {
	SiteName string
	Name     string
	OrderID  string
	Lines    []OrderEmailLine
	Subtotal string
	Shipping string
	Tax      string
	Total    string
}

// BuildOrderPaidEmail creates the receipt sent when an order is paid.
func BuildOrderPaidEmail(to string, data OrderEmailData) Email {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Thanks for your order, %s!\n\nOrder %s\n\n", data.Name, data.OrderID)
	for _, l := range data.Lines {
		fmt.Fprintf(&buf, "  %d x %s  %s\n", l.Quantity, l.Title, l.Price)
	}
	fmt.Fprintf(&buf, "\nSubtotal: %s\nShipping: %s\nTax: %s\nTotal: %s\n", data.Subtotal, data.Shipping, data.Tax, data.Total)
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("%s order %s confirmed", data.SiteName, data.OrderID),
		TextBody: buf.String(),
		HTMLBody: render(orderHTML, data),
	}
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

var resetHTML = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Reset your password</title></head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; color: #111827;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              {{if .Name}}<p style="margin: 0 0 16px; font-size: 16px; color: #374151;">Hi {{.Name}},</p>{{end}}
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151;">We received a request to reset your password.</p>
              <p style="text-align: center;">
                <a href="{{.ResetLink}}" style="display: inline-block; padding: 14px 32px; background-color: #111827; color: #ffffff; text-decoration: none; border-radius: 6px;">Choose a new password</a>
              </p>
              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">This link expires in {{.ExpiresIn}} and can be used once.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

var orderHTML = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Order confirmed</title></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; color: #374151;">
  <h1 style="font-size: 22px;">Thanks for your order{{if .Name}}, {{.Name}}{{end}}!</h1>
  <p>Order <strong>{{.OrderID}}</strong></p>
  <table cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
    {{range .Lines}}<tr><td>{{.Quantity}} &times; {{.Title}}</td><td align="right">{{.Price}}</td></tr>
    {{end}}<tr><td>Subtotal</td><td align="right">{{.Subtotal}}</td></tr>
    <tr><td>Shipping</td><td align="right">{{.Shipping}}</td></tr>
    <tr><td>Tax</td><td align="right">{{.Tax}}</td></tr>
    <tr><td><strong>Total</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr>
  </table>
</body>
</html>`))
