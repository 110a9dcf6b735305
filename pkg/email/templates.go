package email

import "fmt"

// CredentialsEmail builds the welcome mail sent when an admin or manager
// registers a user with a generated temporary password.
func CredentialsEmail(appName, fullName, emailAddr, tempPassword, frontendURL string) Message {
	html := fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>An account was created for you on %s.</p>
<p>Email: <b>%s</b><br>Temporary password: <b>%s</b></p>
<p>Please sign in at <a href="%s">%s</a> and change your password.</p>
</body></html>`, fullName, appName, emailAddr, tempPassword, frontendURL, frontendURL)

	return Message{
		To:      emailAddr,
		Subject: fmt.Sprintf("Your %s account", appName),
		HTML:    html,
	}
}
