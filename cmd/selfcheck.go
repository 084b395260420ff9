package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/notify"
	"github.com/essoham7/chinelivre/internal/whatsapp"
	"github.com/spf13/cobra"
)

// selfcheck exercises the notification formatter and wa.me link builder
// against known-good outputs, without touching any backing service.
var selfcheckCmd = &cobra.Command{
	Use:   "selfcheck",
	Short: "Verify formatter and WhatsApp link outputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		var failures int
		check := func(name, got, want string) {
			if got != want {
				failures++
				fmt.Fprintf(os.Stderr, "ERROR: %s:\n  got:  %s\n  want: %s\n", name, got, want)
				return
			}
			fmt.Printf("ok  %-28s %s\n", name, got)
		}
		fail := func(format string, a ...any) {
			failures++
			fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", a...)
		}

		clock := func() time.Time {
			return time.Date(2025, time.March, 7, 9, 5, 0, 0, time.UTC)
		}
		f := notify.NewWithClock(clock)

		// Status update per lifecycle stage; all stay within the cap.
		for _, st := range model.AllStatuses() {
			msg, err := f.FormatStatus("CHN-2025-0001", st, notify.StatusOptions{})
			if err != nil {
				fail("format status %s: %v", st, err)
				continue
			}
			if n := utf8.RuneCountInString(msg); n > notify.MaxLen {
				fail("status %s message is %d runes, cap is %d", st, n, notify.MaxLen)
				continue
			}
			fmt.Printf("ok  status/%-19s %s\n", st, msg)
		}

		// With location, exact wording.
		msg, err := f.FormatStatus("CHN-2025-0001", model.StatusArrivedAfrica, notify.StatusOptions{
			Location: "Kinshasa",
		})
		if err != nil {
			fail("format status with location: %v", err)
		} else {
			check("status/with-location", msg,
				"Statut de votre colis (numéro de suivi: CHN-2025-0001): Arrivé en Afrique • 07/03/2025 09:05 • Lieu: Kinshasa • Prochaine: disponible à l'entrepôt")
		}

		// Unknown status must be rejected.
		if _, err := f.FormatStatus("CHN-2025-0003", model.PackageStatus("teleported"), notify.StatusOptions{}); err == nil {
			fail("unknown status accepted")
		} else {
			fmt.Println("ok  status/unknown-rejected")
		}

		// Truncation lands exactly on the cap and keeps the ellipsis.
		long := strings.Repeat("é", 300)
		if got := notify.Truncate(long); utf8.RuneCountInString(got) != notify.MaxLen || !strings.HasSuffix(got, "...") {
			fail("truncate: got %d runes, suffix %q", utf8.RuneCountInString(got), got[len(got)-3:])
		} else {
			fmt.Println("ok  truncate/cap-160")
		}

		// Package creation wording.
		check("created", f.FormatCreated("CHN-2025-0004"),
			"Nouveau colis (numéro de suivi: CHN-2025-0004) • 07/03/2025 09:05 • Enregistré par le transitaire")

		// Chat message wording, both directions.
		check("message/admin", f.FormatMessage("CHN-2025-0004", model.SenderAdmin),
			"Nouveau message de l'administration concernant le colis (numéro de suivi: CHN-2025-0004) • 07/03/2025 09:05")
		check("message/client", f.FormatMessage("CHN-2025-0004", model.SenderClient),
			"Nouveau message du client concernant le colis (numéro de suivi: CHN-2025-0004) • 07/03/2025 09:05")

		// wa.me links: spaces become %20, phone keeps digits only, 00 prefix survives.
		check("whatsapp/plus-form",
			whatsapp.BuildURL("+243 812-345-678", "Bonjour, votre colis est arrivé"),
			"https://wa.me/243812345678?text=Bonjour%2C%20votre%20colis%20est%20arriv%C3%A9")
		check("whatsapp/bare-form",
			whatsapp.BuildURL("243812345678", "msg"),
			"https://wa.me/243812345678?text=msg")
		check("whatsapp/00-prefix",
			whatsapp.BuildURL("00243-812-345-678", "msg"),
			"https://wa.me/00243812345678?text=msg")

		if failures > 0 {
			return fmt.Errorf("selfcheck failed: %d error(s)", failures)
		}
		fmt.Println(">> Selfcheck passed ✅")
		return nil
	},
}
