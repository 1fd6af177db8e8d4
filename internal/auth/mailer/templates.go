package mailer

import (
	"fmt"
	"time"
)

func VerificationCode(to, name, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Verify your Spendwise email",
		Body: fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires in %d minutes.\n",
			name, code, int(ttl.Minutes())),
	}
}

func PasswordReset(to, name, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Reset your Spendwise password",
		Body: fmt.Sprintf("Hi %s,\n\nUse code %s to reset your password. It expires in %d minutes.\n"+
			"If you did not ask for this you can ignore this email.\n",
			name, code, int(ttl.Minutes())),
	}
}
