package email

// SendWelcomeEmail greets a newly registered user.
func (c *Client) SendWelcomeEmail(to, firstName string) error {
	data := map[string]string{
		"UserFirstName": firstName,
	}

	return c.SendEmail(
		to,
		"Welcome to Cosmetic Formula Lab!",
		TemplateWelcome,
		data,
	)
}
