package controllers

import (
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// WebhookController handles the "webhook" subcommand.
type WebhookController struct {
	resolver *ForgeResolver
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(resolver *ForgeResolver) *WebhookController {
	return &WebhookController{resolver: resolver}
}

// GetBind returns the Cobra command metadata for the webhook controller.
func (it *WebhookController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "webhook {list|create} <url>",
		Short: "Manage repository webhooks",
		Long: `List the webhooks of a repository or provision a new one.

  gitu webhook list https://github.com/org/repo
  gitu webhook create https://github.com/org/repo --webhook-url https://ci.example.com/hook`,
	}
}

// Execute dispatches the webhook action.
func (it *WebhookController) Execute(cmd *cobra.Command, args []string) {
	action := requireArg(args, 0, "action")
	forge, err := it.resolver.Resolve(cmd, args[1:])
	if err != nil {
		fail(err)
	}

	switch action {
	case "list":
		hooks, listErr := forge.Webhooks(cmd.Context())
		if listErr != nil {
			fail(listErr)
		}
		render(cmd, hooks)

	case "create":
		webhookURL, _ := cmd.Flags().GetString("webhook-url")
		secret, _ := cmd.Flags().GetString("secret")
		insecure, _ := cmd.Flags().GetBool("insecure-ssl")
		rawEvents, _ := cmd.Flags().GetString("events")

		var events []entities.GitEvent
		for _, event := range strings.Split(rawEvents, ",") {
			events = append(events, entities.GitEvent(strings.TrimSpace(event)))
		}

		id, createErr := forge.CreateWebhook(cmd.Context(), entities.CreateWebhookOptions{
			WebhookURL:  webhookURL,
			Secret:      secret,
			Events:      events,
			InsecureSSL: insecure,
			Active:      true,
		})
		if createErr != nil {
			fail(createErr)
		}
		logger.Infof("webhook %s created", id)
		render(cmd, id)

	default:
		fail(fmt.Errorf("unknown webhook action %q (want list or create)", action))
	}
}

// AddFlags adds the webhook-specific flags to the given Cobra command.
func (it *WebhookController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("webhook-url", "", "Delivery URL for the new webhook")
	cmd.Flags().String("secret", "", "Shared secret for deliveries")
	cmd.Flags().String("events", "push", "Comma-separated events (push, pull_request)")
	cmd.Flags().Bool("insecure-ssl", false, "Skip TLS verification on delivery")
}
