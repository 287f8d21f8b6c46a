package services

import (
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"

	"github.com/khan-rustam/sparkshift-server/internal/models"
)

// Enqueuer lets the notifier hand formatted mail to the delivery queue
// without waiting for delivery.
type Enqueuer interface {
	Enqueue(Message)
}

// Notifier turns template identifiers and parameters into addressed
// messages and enqueues them. It never blocks the caller on network I/O.
type Notifier struct {
	queue      Enqueuer
	adminEmail string
	siteName   string
	siteURL    string
}

func NewNotifier(queue Enqueuer, adminEmail string) *Notifier {
	return &Notifier{
		queue:      queue,
		adminEmail: adminEmail,
		siteName:   "SparkShift",
		siteURL:    "https://sparkshift.digital",
	}
}

var otpEmailTmpl = template.Must(template.New("otp").Parse(`
<div style="background-color:#1a1a1a;color:#ffffff;padding:40px 20px;font-family:Arial,sans-serif;">
  <div style="background-color:#242424;max-width:600px;margin:0 auto;border-radius:16px;padding:30px;">
    <div style="background-color:#2d2d2d;padding:30px;border-radius:12px;border:1px solid #3d3d3d;">
      <h2 style="color:#9333ea;margin-top:0;text-align:center;">{{.Heading}}</h2>
      <p style="line-height:1.6;text-align:center;">{{.Intro}}</p>
      <div style="background-color:#1a1a1a;padding:25px;text-align:center;margin:25px 0;border-radius:8px;">
        <h1 style="color:#9333ea;margin:0;font-size:36px;letter-spacing:8px;">{{.Code}}</h1>
      </div>
      <p style="line-height:1.6;text-align:center;">This code will expire in 10 minutes.</p>
      <p style="color:#a0a0a0;font-size:14px;text-align:center;">{{.Footer}}</p>
    </div>
    <p style="color:#a0a0a0;font-size:12px;text-align:center;">&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
  </div>
</div>`))

var contactAdminTmpl = template.Must(template.New("contact-admin").Parse(`
<div style="background-color:#ffffff;color:#333333;padding:30px;max-width:600px;margin:0 auto;">
  <div style="background-color:#f4f4f4;padding:20px;border-radius:10px;">
    <h2 style="color:#9333ea;margin-top:0;">New Contact Form Submission</h2>
    <div style="margin-bottom:15px;"><div style="color:#9333ea;font-weight:bold;">Name</div><div>{{.Name}}</div></div>
    <div style="margin-bottom:15px;"><div style="color:#9333ea;font-weight:bold;">Email</div><div>{{.Email}}</div></div>
    <div style="margin-bottom:15px;"><div style="color:#9333ea;font-weight:bold;">Subject</div><div>{{.Subject}}</div></div>
    <div style="margin-bottom:15px;"><div style="color:#9333ea;font-weight:bold;">Message</div><div style="white-space:pre-wrap;">{{.Message}}</div></div>
    <div style="text-align:center;margin-top:20px;">
      <a href="mailto:{{.Email}}?subject=Re: {{.Subject}}" style="display:inline-block;background-color:#9333ea;color:#ffffff;padding:12px 25px;text-decoration:none;border-radius:5px;">Reply to Message</a>
    </div>
    <p style="text-align:center;color:#666666;font-size:14px;margin-top:30px;">Received on {{.ReceivedAt}}</p>
  </div>
</div>`))

var contactAckTmpl = template.Must(template.New("contact-ack").Parse(`
<div style="background-color:#ffffff;color:#333333;padding:30px;max-width:600px;margin:0 auto;">
  <div style="background-color:#f4f4f4;padding:20px;border-radius:10px;">
    <h2 style="color:#9333ea;margin-top:0;">Thank You for Reaching Out!</h2>
    <p style="line-height:1.6;">Dear {{.Name}},</p>
    <p style="line-height:1.6;">Thank you for contacting {{.SiteName}}. We have received your message and our team will review it shortly. We appreciate your interest and will get back to you as soon as possible.</p>
    <p style="line-height:1.6;">Best regards,<br/>The {{.SiteName}} Team</p>
    <div style="text-align:center;margin-top:30px;">
      <a href="{{.SiteURL}}" style="display:inline-block;background-color:#9333ea;color:#ffffff;padding:12px 30px;text-decoration:none;border-radius:6px;">Explore More</a>
    </div>
  </div>
</div>`))

// SendRegistrationOTP enqueues the email-verification code mail.
func (n *Notifier) SendRegistrationOTP(email, code string) {
	body := n.renderOTP(
		"Email Verification Code",
		fmt.Sprintf("Thank you for signing up with %s. To complete your registration, please use the following verification code:", n.siteName),
		"If you didn't request to create an account, please ignore this email.",
		code,
	)
	n.queue.Enqueue(Message{
		To:      email,
		Subject: fmt.Sprintf("Email Verification OTP - %s", n.siteName),
		Body:    body,
	})
}

// SendResetOTP enqueues the password-reset code mail.
func (n *Notifier) SendResetOTP(email, code string) {
	body := n.renderOTP(
		"Password Reset OTP",
		"You have requested to reset your password. Use the following OTP to proceed:",
		"If you didn't request this password reset, please ignore this email.",
		code,
	)
	n.queue.Enqueue(Message{
		To:      email,
		Subject: fmt.Sprintf("Password Reset OTP - %s", n.siteName),
		Body:    body,
	})
}

// SendContactNotification enqueues the admin notification and the
// acknowledgement back to the sender.
func (n *Notifier) SendContactNotification(req *models.ContactRequest) {
	var admin strings.Builder
	err := contactAdminTmpl.Execute(&admin, map[string]string{
		"Name":       req.Name,
		"Email":      req.Email,
		"Subject":    req.Subject,
		"Message":    req.Message,
		"ReceivedAt": time.Now().UTC().Format("Monday, January 2, 2006 15:04"),
	})
	if err != nil {
		log.Printf("Failed to render contact-admin template: %v", err)
	} else {
		n.queue.Enqueue(Message{
			To:      n.adminEmail,
			Subject: fmt.Sprintf("%s - from %s", req.Subject, req.Name),
			Body:    admin.String(),
		})
	}

	var ack strings.Builder
	err = contactAckTmpl.Execute(&ack, map[string]string{
		"Name":     req.Name,
		"SiteName": n.siteName,
		"SiteURL":  n.siteURL,
	})
	if err != nil {
		log.Printf("Failed to render contact-ack template: %v", err)
		return
	}
	n.queue.Enqueue(Message{
		To:      req.Email,
		Subject: fmt.Sprintf("Thank you for contacting %s", n.siteName),
		Body:    ack.String(),
	})
}

func (n *Notifier) renderOTP(heading, intro, footer, code string) string {
	var b strings.Builder
	err := otpEmailTmpl.Execute(&b, map[string]any{
		"Heading":  heading,
		"Intro":    intro,
		"Footer":   footer,
		"Code":     code,
		"Year":     time.Now().Year(),
		"SiteName": n.siteName,
	})
	if err != nil {
		log.Printf("Failed to render otp template: %v", err)
		return code
	}
	return b.String()
}
