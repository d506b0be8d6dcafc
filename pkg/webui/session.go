package webui

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/autumnfound/otterdog/pkg/logger"
)

var webLog = logger.New("webui:session")

// Credentials authenticate the browser session. TOTP produces a fresh
// one-time password when two-factor authentication is required.
type Credentials struct {
	Username string
	Password string
	TOTP     func() (string, error)
}

// Client drives a browser session against the web interface. It satisfies
// the provider's WebClient surface.
type Client struct {
	table SettingsTable
	creds Credentials
}

// NewClient creates a web client using the given settings table.
func NewClient(table SettingsTable, creds Credentials) *Client {
	return &Client{table: table, creds: creds}
}

// RetrieveSettings reads all settings of the table from the web interface.
func (c *Client) RetrieveSettings(ctx context.Context, orgID string) (map[string]any, error) {
	webLog.Print("retrieving settings via web interface")

	settings := make(map[string]any)
	err := c.withSession(ctx, func(page *rod.Page) error {
		for pageURL, pageDefs := range c.table {
			if err := c.gotoOrgPage(page, orgID, pageURL); err != nil {
				return err
			}
			for name, def := range pageDefs {
				value, err := readSetting(page, def)
				if err != nil {
					return fmt.Errorf("failed reading setting '%s': %w", name, err)
				}
				settings[name] = value
				webLog.Printf("retrieved setting '%s' = '%v'", name, value)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateSettings writes the given settings through the web interface. Each
// affected page is loaded once; the save button is exercised with a trial
// pass (waiting for client-side enablement) before the live click.
func (c *Client) UpdateSettings(ctx context.Context, orgID string, data map[string]any) error {
	webLog.Print("updating settings via web interface")

	return c.withSession(ctx, func(page *rod.Page) error {
		for pageURL, pageDefs := range c.table.PagesFor(data) {
			if err := c.gotoOrgPage(page, orgID, pageURL); err != nil {
				return err
			}
			for name, def := range pageDefs {
				if err := writeSetting(page, def, data[name]); err != nil {
					return fmt.Errorf("failed writing setting '%s': %w", name, err)
				}
				webLog.Printf("updated setting '%s' = '%v'", name, data[name])
			}
		}
		return nil
	})
}

// withSession connects a browser, logs in, runs fn and logs out again.
func (c *Client) withSession(ctx context.Context, fn func(page *rod.Page) error) error {
	browser := rod.New().Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return err
	}

	if err := c.loginIfRequired(page); err != nil {
		return err
	}
	defer c.logout(page)

	return fn(page)
}

func (c *Client) gotoOrgPage(page *rod.Page, orgID, pageURL string) error {
	target := fmt.Sprintf("https://github.com/organizations/%s/%s", orgID, pageURL)
	webLog.Printf("loading page '%s'", pageURL)
	if err := page.Navigate(target); err != nil {
		return fmt.Errorf("unable to access github page '%s': %w", pageURL, err)
	}
	return page.WaitLoad()
}

func (c *Client) loginIfRequired(page *rod.Page) error {
	actor, err := c.loggedInAs(page)
	if err != nil {
		return err
	}
	switch actor {
	case "":
		return c.login(page)
	case c.creds.Username:
		return nil
	default:
		return fmt.Errorf("logged in with unexpected user %s", actor)
	}
}

func (c *Client) loggedInAs(page *rod.Page) (string, error) {
	if err := page.Navigate("https://github.com/settings/profile"); err != nil {
		return "", fmt.Errorf("unable to access github web interface: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", err
	}

	element, err := page.Element(`meta[name="octolytics-actor-login"]`)
	if err != nil {
		// no actor meta tag, nobody is logged in.
		return "", nil
	}
	content, err := element.Attribute("content")
	if err != nil || content == nil {
		return "", nil
	}
	return *content, nil
}

func (c *Client) login(page *rod.Page) error {
	if err := page.Navigate("https://github.com/login"); err != nil {
		return fmt.Errorf("unable to access github login page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return err
	}

	if err := fill(page, "#login_field", c.creds.Username); err != nil {
		return err
	}
	if err := fill(page, "#password", c.creds.Password); err != nil {
		return err
	}
	if err := click(page, `input[name="commit"]`); err != nil {
		return err
	}

	if c.creds.TOTP == nil {
		return nil
	}
	if err := page.Navigate("https://github.com/sessions/two-factor"); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		return err
	}
	totp, err := c.creds.TOTP()
	if err != nil {
		return fmt.Errorf("failed to compute totp: %w", err)
	}
	return fill(page, "#app_totp", totp)
}

func (c *Client) logout(page *rod.Page) {
	actor, err := c.loggedInAs(page)
	if err != nil || actor == "" {
		return
	}
	selector := fmt.Sprintf(`div.Header-item > details.details-overlay > summary.Header-link > img[alt="@%s"]`, actor)
	if err := click(page, selector); err != nil {
		webLog.Printf("logout failed: %v", err)
		return
	}
	if err := click(page, `button[type="submit"].dropdown-signout`); err != nil {
		webLog.Printf("logout failed: %v", err)
	}
}

func readSetting(page *rod.Page, def SettingDef) (any, error) {
	element, err := page.Element(def.Selector)
	if err != nil {
		return nil, err
	}
	property, err := element.Property(def.ValueSelector)
	if err != nil {
		return nil, err
	}
	if def.ValueSelector == "checked" {
		return property.Bool(), nil
	}
	return property.String(), nil
}

func writeSetting(page *rod.Page, def SettingDef, value any) error {
	element, err := page.Element(def.Selector)
	if err != nil {
		return err
	}

	switch v := value.(type) {
	case bool:
		if err := setChecked(element, v); err != nil {
			return err
		}
	case string:
		if def.ValueSelector == "checked" {
			// booleans occasionally arrive as the strings "True"/"true";
			// they are equivalent to their boolean form here.
			if err := setChecked(element, v == "True" || v == "true"); err != nil {
				return err
			}
		} else {
			if err := element.SelectAllText(); err != nil {
				return err
			}
			if err := element.Input(v); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported value type %T", value)
	}

	save, err := page.Element(def.SaveSelector)
	if err != nil {
		return err
	}
	// trial pass: some forms enable the save button only after client-side
	// validation ran.
	if _, err := save.WaitInteractable(); err != nil {
		return err
	}
	return save.Click(proto.InputMouseButtonLeft, 1)
}

func setChecked(element *rod.Element, checked bool) error {
	property, err := element.Property("checked")
	if err != nil {
		return err
	}
	if property.Bool() == checked {
		return nil
	}
	return element.Click(proto.InputMouseButtonLeft, 1)
}

func fill(page *rod.Page, selector, text string) error {
	element, err := page.Element(selector)
	if err != nil {
		return err
	}
	return element.Input(text)
}

func click(page *rod.Page, selector string) error {
	element, err := page.Element(selector)
	if err != nil {
		return err
	}
	return element.Click(proto.InputMouseButtonLeft, 1)
}
