package model

import (
	"strings"

	"github.com/autumnfound/otterdog/pkg/attr"
)

var webhookSchema = NewSchema(
	FieldSpec{Name: "url", Key: true},
	FieldSpec{Name: "active"},
	FieldSpec{Name: "events", Unordered: true},
	FieldSpec{Name: "content_type"},
	FieldSpec{Name: "insecure_ssl"},
	FieldSpec{Name: "secret"},
)

// Webhook is an organization webhook, identified by its target url. The
// live id is kept separately so updates can address the provider resource.
type Webhook struct {
	Fields

	// ID is the opaque provider id, only populated on the live side.
	ID int64
}

// NewWebhookFromDeclared builds a webhook from declared data.
func NewWebhookFromDeclared(data map[string]any) *Webhook {
	w := &Webhook{Fields: newFields(webhookSchema)}
	w.loadDict(data)
	return w
}

// NewWebhookFromLive builds a webhook from provider data. The provider
// nests url, content type, insecure_ssl and the redacted secret under
// "config"; they are flattened into regular attributes here.
func NewWebhookFromLive(data map[string]any) *Webhook {
	w := &Webhook{Fields: newFields(webhookSchema)}
	w.loadDict(data)
	if config, ok := data["config"].(map[string]any); ok {
		for _, name := range []string{"url", "content_type", "insecure_ssl", "secret"} {
			if v, ok := config[name]; ok {
				w.Set(name, attr.FromAny(v))
			}
		}
	}
	if id, ok := data["id"]; ok {
		w.ID = attr.FromAny(id).Int()
	}
	return w
}

func (w *Webhook) ObjectName() string {
	return "webhook"
}

func (w *Webhook) Key() string {
	return w.Get("url").String()
}

func (w *Webhook) IncludeFieldForDiffComputation(name string) bool {
	// the provider reports secrets redacted, so a set secret can never be
	// compared against live state.
	if name == "secret" && w.HasRedactedSecret() {
		return false
	}
	return true
}

// HasRedactedSecret reports whether the secret value is a provider-side
// redaction rather than a real secret.
func (w *Webhook) HasRedactedSecret() bool {
	secret := w.Get("secret")
	return secret.IsSet() && strings.Contains(secret.String(), "*")
}

// HasSecret reports whether a real secret is configured.
func (w *Webhook) HasSecret() bool {
	return w.Get("secret").IsSet() && !w.HasRedactedSecret()
}

func (w *Webhook) Validate(ctx *ValidationContext, parent Object) {
	url := w.Get("url")
	if !url.IsSet() || url.String() == "" {
		ctx.AddFailure(FailureError, "webhook has no 'url' configured.")
		return
	}

	if !strings.HasPrefix(url.String(), "https://") {
		ctx.AddFailure(FailureWarning,
			"%s does not use a secure url.", Header(w))
	}

	if events := w.Get("events"); events.IsSet() && len(events.Strings()) == 0 {
		ctx.AddFailure(FailureWarning,
			"%s has no events configured, it will never trigger.", Header(w))
	}
}

// ToProvider renders the full webhook as a provider payload with the
// transport's nested config shape. The whole object is always sent: the
// provider's PATCH semantics are partial for some fields only.
func (w *Webhook) ToProvider() map[string]any {
	config := make(map[string]any)
	out := map[string]any{"config": config}

	for _, spec := range w.schema.Specs() {
		v := w.Get(spec.Name)
		switch spec.Name {
		case "url", "content_type", "insecure_ssl", "secret":
			if spec.Name == "secret" && w.HasRedactedSecret() {
				continue
			}
			writeField(config, spec.Name, v)
		default:
			writeField(out, spec.Name, v)
		}
	}
	return out
}
