package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/session"
)

// Page is a top-level route of the shell.
type Page int

const (
	HomePage Page = iota
	AboutPage
	TermsPage
	SubscriptionsPage
	HistoryPage
	NotFoundPage
)

func (p Page) String() string {
	switch p {
	case HomePage:
		return "home"
	case AboutPage:
		return "about"
	case TermsPage:
		return "terms"
	case SubscriptionsPage:
		return "subscriptions"
	case HistoryPage:
		return "history"
	default:
		return "not-found"
	}
}

// ParsePage maps a route name ("", "/", "about", "/terms", ...) to its page. Unknown names resolve to [NotFoundPage].
func ParsePage(name string) Page {
	switch strings.Trim(strings.ToLower(strings.TrimSpace(name)), "/") {
	case "", "home", "upload":
		return HomePage
	case "about":
		return AboutPage
	case "terms":
		return TermsPage
	case "subscriptions", "subscribe", "plans":
		return SubscriptionsPage
	case "history":
		return HistoryPage
	default:
		return NotFoundPage
	}
}

const (
	SubscriptionSucceeded = "Subscription Successful!"
	SubscriptionFailed    = "Failed to create subscription."
)

// SubscriptionMessage maps a checkout result ("true", "false" or empty) to its banner.
func SubscriptionMessage(success string) string {
	switch strings.ToLower(strings.TrimSpace(success)) {
	case "true":
		return SubscriptionSucceeded
	case "false":
		return SubscriptionFailed
	default:
		return ""
	}
}

// Plan copy shown on the subscriptions page.
var (
	FreePlanFeatures = []string{
		"Three free transcriptions",
		"No Transcriptions via YouTube link",
		"No Custom transcription features",
	}
	ProPlanFeatures = []string{
		"Unlimited transcriptions",
		"Transcriptions via YouTube link",
		"Custom transcription features (coming soon!)",
	}
)

const (
	FreePlanCost = "Monthly Cost: Free"
	ProPlanCost  = "Monthly Cost: $5.99"
)

// AboutText is the body of the about page.
const AboutText = `Why Choose String Scribe?

  🎻 Violin-Specific Accuracy – Our transcription is fine-tuned for violin range, technique, and notation.
  ⚡ Fast & Easy – Upload your file and see the sheet music within seconds.
  🌐 Accessible Anywhere – Works right in your terminal, nothing else to install.

Our Mission

Ever wanted to learn to play a song on the violin, but you can't find the score or a tutorial anywhere?
The only way to learn the song is to learn it by ear, which is time consuming (although also a good exercise).
String Scribe is meant to aid violin players in this position, not replacing the process of learning a song
through hearing, but helping the player along the way. Automatic sheet music transcription is an area of
ongoing research, so the sheet music generated will not be perfect. However, it can be close for most songs
or parts of songs, allowing the player to fill in the gaps themselves.

Who we Serve

  Violin students seeking to practice from personalized sheet music
  Teachers creating exercises and arrangements for their students
  Professionals arranging or transcribing original works
  Hobbyists exploring new music in a fun, intuitive way

Support

You may reach out to stringscribe@gmail.com for support or inquiries.`

// TermsText is the body of the terms of service page.
const TermsText = `Terms of Service

1. You may only upload audio you own or are licensed to use. You are responsible for the content you submit.
2. Uploaded audio and YouTube links are sent to the String Scribe service for transcription and are not kept
   after the transcription completes.
3. Transcriptions are generated automatically and may contain mistakes. They are provided as-is.
4. Free accounts are limited to three transcriptions. Pro subscribers have unlimited transcriptions and may
   transcribe from YouTube links.
5. Subscriptions are billed monthly through our payment provider and can be cancelled at any time from the
   customer portal.

Contact stringscribe@gmail.com with questions about these terms.`

// NotFoundText is shown for unknown routes.
const NotFoundText = "404\n\nPage Not Found\n\nThe page you're looking for doesn't exist or has been moved."

func renderFeatures(b *strings.Builder, mark string, features []string) {
	for _, f := range features {
		fmt.Fprintf(b, "  %s %s\n", mark, f)
	}
}

// RenderSubscriptions draws the plan comparison and, for signed-in users, the checkout action.
func RenderSubscriptions(access entitlement.Access, banner string) string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Subscriptions") + "\n")

	if !access.Authenticated {
		b.WriteString(styles.warn.Render("Not Signed In") + "\n")
		b.WriteString("Please log in to view subscriptions.\n")
		return b.String()
	}

	b.WriteString(styles.ok.Render("Free Subscription") + "\n")
	renderFeatures(&b, "•", FreePlanFeatures)
	b.WriteString(FreePlanCost + "\n\n")

	b.WriteString(styles.ok.Render("Upgrade to Pro") + "\n")
	renderFeatures(&b, "✓", ProPlanFeatures)
	b.WriteString(ProPlanCost + "\n\n")

	if access.Pro {
		b.WriteString(styles.muted.Render("Pro plan activated") + "\n")
	} else {
		b.WriteString(styles.pro.Render("Go Pro") + "\n")
	}

	switch banner {
	case SubscriptionSucceeded:
		b.WriteString("\n" + styles.ok.Render(banner) + "\n")
	case "":
	default:
		b.WriteString("\n" + styles.err.Render(banner) + "\n")
	}
	return b.String()
}

// RenderAccount draws the account panel.
func RenderAccount(sess session.Session, access entitlement.Access) string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Account") + "\n")

	switch {
	case sess.IsLoading:
		b.WriteString("Loading...\n")
	case !access.Authenticated || sess.Identity == nil:
		b.WriteString(styles.warn.Render("Not Signed In") + "\n")
		b.WriteString("Please log in to view your account.\n")
	default:
		id := sess.Identity
		chip := styles.chip.Render(access.Plan())
		if access.Pro {
			chip = styles.pro.Render("★ " + access.Plan())
		}
		b.WriteString(styles.ok.Render(id.DisplayName) + "\n" + chip + "\n\n")
		b.WriteString(styles.muted.Render("EMAIL") + "\n" + id.Email + "\n\n")
		b.WriteString(styles.ok.Render("Subscription") + "\n")
		if access.Pro {
			b.WriteString("You're on the Pro plan with unlimited access to all features.\n")
			b.WriteString(styles.help.Render("m: Manage Subscription") + "\n")
		} else {
			b.WriteString("Upgrade to Pro for unlimited transcriptions and advanced features.\n")
			b.WriteString(styles.help.Render("s: View Plans & Upgrade") + "\n")
		}
	}
	return styles.panel.Render(strings.TrimRight(b.String(), "\n"))
}

// RenderPaywall draws the subscription prompt for an upgrade-worthy failure.
func RenderPaywall(message string) string {
	body := styles.title.Render("Pro Subscription Required") + "\n" + message + "\n\n" +
		styles.help.Render("enter: View Subscriptions • esc: dismiss")
	return styles.dialog.Render(body)
}
