package email

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; background:#f6f9fc; padding:40px;">
  <div style="max-width:500px; margin:auto; background:white; border-radius:12px; padding:32px;">
    <h2 style="text-align:center; margin-bottom:20px; color:#4a4a4a;">Your Verification Code</h2>
    <p>Hi <strong>{{.Name}}</strong>,</p>
    <p>Your OTP is:</p>
    <div style="text-align:center; font-size:32px; font-weight:bold; letter-spacing:6px; padding:20px; background:#667eea; color:white; border-radius:8px;">
      {{.OTP}}
    </div>
    <p style="margin-top:24px; font-size:14px; color:#555;">
      This code is valid for {{.TTL}}. Do not share it with anyone.
    </p>
    <p style="font-size:12px; color:#999; text-align:center; margin-top:32px;">
      &copy; {{.Year}} Your Company
    </p>
  </div>
</body>
</html>
`))

var linkTemplate = template.Must(template.New("link").Parse(`<!DOCTYPE html>
<html>
<body style="font-family:sans-serif; background:#f6f9fc; padding:40px;">
  <div style="max-width:520px; margin:auto; background:#fff; padding:32px; border-radius:14px;">
    <h2 style="text-align:center; color:#4a4a4a; margin-bottom:8px;">Welcome Aboard!</h2>
    <p style="text-align:center; color:#666; margin-bottom:24px;">Just one more step to get started</p>
    <p style="font-size:16px; color:#333; margin-bottom:20px;">
      Hi <strong>{{.Name}}</strong>, please verify your email to activate your account.
    </p>
    <div style="text-align:center; margin-bottom:32px;">
      <a href="{{.VerifyURL}}"
         style="background:#667eea; color:#fff; padding:14px 40px; font-weight:600;
                text-decoration:none; border-radius:40px; display:inline-block;">
        Verify Email
      </a>
    </div>
    <p style="font-size:13px; color:#444; margin:0 0 6px;">If the button doesn't work, use this link:</p>
    <p style="font-size:12px; color:#667eea; word-break:break-all; margin-bottom:24px;">{{.VerifyURL}}</p>
    <p style="background:#fff5f5; color:#742a2a; padding:14px; border-radius:8px; font-size:13px; margin-bottom:28px;">
      If you didn't create an account, you can safely ignore this email.
    </p>
    <p style="text-align:center; font-size:12px; color:#aaa;">
      &copy; {{.Year}} Your Company
    </p>
  </div>
</body>
</html>
`))

type otpData struct {
	Name string
	OTP  string
	TTL  string
	Year int
}

type linkData struct {
	Name      string
	VerifyURL string
	Year      int
}

func renderOTP(name, otp string, ttl time.Duration) (string, error) {
	var b strings.Builder
	err := otpTemplate.Execute(&b, otpData{
		Name: name,
		OTP:  otp,
		TTL:  formatTTL(ttl),
		Year: time.Now().Year(),
	})
	return b.String(), err
}

func renderLink(name, verifyURL string) (string, error) {
	var b strings.Builder
	err := linkTemplate.Execute(&b, linkData{
		Name:      name,
		VerifyURL: verifyURL,
		Year:      time.Now().Year(),
	})
	return b.String(), err
}

func formatTTL(ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
