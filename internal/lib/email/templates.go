package email

// Template names an HTML file in TemplateDir.
type Template string

const (
	TemplateWelcome Template = "welcome"
)

// Templates lists every template the application sends.
var Templates = []Template{TemplateWelcome}
