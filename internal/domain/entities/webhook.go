package entities

// GitEvent is a forge-neutral webhook trigger.
type GitEvent string

const (
	EventPush        GitEvent = "push"
	EventPullRequest GitEvent = "pull_request"
)

// WebhookConfig mirrors the delivery settings of a webhook.
type WebhookConfig struct {
	ContentType string
	URL         string
	InsecureSSL bool
}

// Webhook is one configured hook on a repository.
type Webhook struct {
	ID     int64
	Name   string
	Active bool
	Events []string
	Config WebhookConfig
}

// CreateWebhookOptions holds the inputs for provisioning a webhook.
type CreateWebhookOptions struct {
	WebhookURL  string
	Secret      string
	Events      []GitEvent
	InsecureSSL bool
	Active      bool
}

// WebhookParams are the per-forge header/value selectors CI templates use
// to filter incoming deliveries for one event type.
type WebhookParams struct {
	// EventHeader is the HTTP header carrying the event name.
	EventHeader string
	// EventValue is the header value the forge sends for the event.
	EventValue string
}
