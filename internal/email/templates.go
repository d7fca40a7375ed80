package email

import (
	"bytes"
	"html/template"
	"math"
	"time"
)

// Message es un correo listo para Notifier.Send.
type Message struct {
	Subject string
	HTML    string
}

var (
	welcomeTmpl = template.Must(template.New("welcome").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.6;">
    <h2>Welcome, {{.Name}}!</h2>
    <p>Your account has been successfully created with the email:</p>
    <p><b>{{.Email}}</b></p>
    <p>We're thrilled to have you at <b>{{.AppName}}</b>. Explore, stay protected, and make the most of our features.</p>
    <br>
    <p>Best regards,<br><b>The {{.AppName}} Team</b></p>
</div>`))

	otpTmpl = template.Must(template.New("otp").Parse(`<h2>Hello {{.Name}},</h2>
<p>Your One-Time Password (OTP) for {{.Purpose}} <b>{{.Email}}</b> is:</p>
<h1 style="color:#007bff;">{{.Code}}</h1>
<p>This code will expire in <b>{{.Minutes}} minutes</b>.</p>
<br/>
<p>- {{.AppName}}</p>`))
)

type templateData struct {
	AppName string
	Name    string
	Email   string
	Purpose string
	Code    string
	Minutes int
}

// WelcomeMessage arma el correo de bienvenida tras el registro.
func WelcomeMessage(appName, name, emailAddr string) (Message, error) {
	body, err := render(welcomeTmpl, templateData{AppName: appName, Name: name, Email: emailAddr})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "Welcome to " + appName + "!", HTML: body}, nil
}

// VerifyOTPMessage arma el correo con el codigo de verificacion de email.
func VerifyOTPMessage(appName, name, emailAddr, code string, ttl time.Duration) (Message, error) {
	body, err := render(otpTmpl, templateData{
		AppName: appName,
		Name:    name,
		Email:   emailAddr,
		Purpose: "verifying your email",
		Code:    code,
		Minutes: minutes(ttl),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "OTP - Email Verification", HTML: body}, nil
}

// ResetOTPMessage arma el correo con el codigo para resetear la contraseña.
func ResetOTPMessage(appName, name, emailAddr, code string, ttl time.Duration) (Message, error) {
	body, err := render(otpTmpl, templateData{
		AppName: appName,
		Name:    name,
		Email:   emailAddr,
		Purpose: "resetting your password",
		Code:    code,
		Minutes: minutes(ttl),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "OTP - Password Reset", HTML: body}, nil
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func minutes(ttl time.Duration) int {
	return int(math.Ceil(ttl.Minutes()))
}
