// ABOUTME: Admin CLI for relay and account management
// ABOUTME: Talks to the relay-console HTTP API with key authentication

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/relay-console/internal/console"
	"github.com/2389/relay-console/internal/relay"
)

const banner = `
           _                             _           _
  _ __ ___| | __ _ _   _        __ _  __| |_ __ ___ (_)_ __
 | '__/ _ \ |/ _' | | | |_____ / _' |/ _' | '_ ' _ \| | '_ \
 | | |  __/ | (_| | |_| |_____| (_| | (_| | | | | | | | | | |
 |_|  \___|_|\__,_|\__, |      \__,_|\__,_|_| |_| |_|_|_| |_|
                   |___/
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("RELAY_CONSOLE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	readKey := os.Getenv("RELAY_CONSOLE_READ_KEY")
	adminKey := os.Getenv("RELAY_CONSOLE_ADMIN_KEY")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	session := console.NewSession(baseURL, readKey, adminKey)

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "relay":
		err = cmdRelay(ctx, session, args)
	case "accounts":
		err = cmdAccounts(ctx, session, args)
	case "join":
		err = cmdJoin(ctx, session, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	color.New(color.FgCyan).Print(banner)
	fmt.Println("Usage: relay-admin <command> [args]")
	fmt.Println()
	fmt.Println("Relay commands:")
	fmt.Println("  relay list                            List all relays")
	fmt.Println("  relay show <relay-id>                 Show a relay and its configuration")
	fmt.Println("  relay create <name>                   Create a new relay")
	fmt.Println("  relay toggle <relay-id>               Flip a relay between active and inactive")
	fmt.Println("  relay fee <relay-id> <sats|off>       Set or disable the join fee")
	fmt.Println("  relay storage <relay-id> <unit> <limit> <action>")
	fmt.Println("                                        Set the per-account storage policy")
	fmt.Println("  relay delete <relay-id>               Delete a relay and its data")
	fmt.Println()
	fmt.Println("Account commands:")
	fmt.Println("  accounts list <relay-id> [allowed|blocked|all]")
	fmt.Println("                                        List accounts on the allow/block lists")
	fmt.Println("  accounts allow <relay-id> <pubkey>    Allow a public key")
	fmt.Println("  accounts block <relay-id> <pubkey>    Block a public key")
	fmt.Println("  accounts remove <relay-id> <pubkey>   Remove an account record")
	fmt.Println()
	fmt.Println("Payment commands:")
	fmt.Println("  join <relay-id> <pubkey> <invoice>    Settle a join fee with a bolt11 invoice")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  RELAY_CONSOLE_URL        Console server URL (default http://localhost:8080)")
	fmt.Println("  RELAY_CONSOLE_READ_KEY   API key for reads")
	fmt.Println("  RELAY_CONSOLE_ADMIN_KEY  API key for mutations")
}

func cmdRelay(ctx context.Context, session *console.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("relay command requires a subcommand, see 'relay-admin help'")
	}

	sub := args[0]
	if sub == "list" {
		list, err := session.ListRelays(ctx)
		if err != nil {
			return err
		}
		printRelayList(list)
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("relay %s requires a relay id", sub)
	}
	switch sub {
	case "show":
		fetched, err := session.FetchRelay(ctx, args[1])
		if err != nil {
			return err
		}
		printRelay(fetched)
		return nil

	case "create":
		created, err := session.CreateRelay(ctx, &relay.Relay{
			Active: true,
			Meta:   relay.RelayMeta{Name: args[1]},
			Config: relay.DefaultConfig(),
		})
		if err != nil {
			return err
		}
		color.Green("Created relay %s", created.ID)
		printRelay(created)
		return nil

	case "toggle":
		if _, err := session.FetchRelay(ctx, args[1]); err != nil {
			return err
		}
		toggled, err := session.ToggleActive(ctx)
		if err != nil {
			return err
		}
		if toggled.Active {
			color.Green("Relay %s is now active", toggled.ID)
		} else {
			color.Yellow("Relay %s is now inactive", toggled.ID)
		}
		return nil

	case "fee":
		if len(args) < 3 {
			return fmt.Errorf("usage: relay fee <relay-id> <sats|off>")
		}
		return setFee(ctx, session, args[1], args[2])

	case "storage":
		if len(args) < 5 {
			return fmt.Errorf("usage: relay storage <relay-id> <KB|MB> <limit> <BLOCK_NEW|PRUNE_OLD>")
		}
		return setStorage(ctx, session, args[1], args[2], args[3], args[4])

	case "delete":
		if err := session.DeleteRelay(ctx, args[1]); err != nil {
			return err
		}
		color.Yellow("Deleted relay %s", args[1])
		return nil

	default:
		return fmt.Errorf("unknown relay subcommand: %s", sub)
	}
}

func setFee(ctx context.Context, session *console.Session, relayID, value string) error {
	if _, err := session.FetchRelay(ctx, relayID); err != nil {
		return err
	}

	if value == "off" {
		updated, err := session.UpdateRelay(ctx, func(r *relay.Relay) error {
			r.Config.DisablePaidJoin()
			return nil
		})
		if err != nil {
			return err
		}
		color.Yellow("Join fee disabled on %s", updated.ID)
		return nil
	}

	sats, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid fee amount %q", value)
	}
	updated, err := session.UpdateRelay(ctx, func(r *relay.Relay) error {
		return r.Config.EnablePaidJoin(sats, "")
	})
	if err != nil {
		return err
	}
	color.Green("Join fee on %s set to %d sats", updated.ID, sats)
	return nil
}

func setStorage(ctx context.Context, session *console.Session, relayID, unit, limit, action string) error {
	if _, err := session.FetchRelay(ctx, relayID); err != nil {
		return err
	}

	parsedLimit, err := strconv.ParseInt(limit, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid storage limit %q", limit)
	}

	updated, err := session.UpdateRelay(ctx, func(r *relay.Relay) error {
		return r.Config.SetStoragePolicy(
			relay.StorageUnit(strings.ToUpper(unit)),
			parsedLimit,
			relay.StorageAction(strings.ToUpper(action)),
		)
	})
	if err != nil {
		return err
	}
	color.Green("Storage policy on %s: %d %s, %s",
		updated.ID, parsedLimit, strings.ToUpper(unit), strings.ToUpper(action))
	return nil
}

func cmdAccounts(ctx context.Context, session *console.Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("accounts command requires a subcommand and relay id, see 'relay-admin help'")
	}

	sub := args[0]
	relayID := args[1]
	if _, err := session.FetchRelay(ctx, relayID); err != nil {
		return err
	}

	switch sub {
	case "list":
		filter := relay.AccountFilter{IncludeAllowed: true, IncludeBlocked: true}
		if len(args) > 2 {
			switch args[2] {
			case "allowed":
				filter = relay.AccountFilter{IncludeAllowed: true}
			case "blocked":
				filter = relay.AccountFilter{IncludeBlocked: true}
			case "all":
			default:
				return fmt.Errorf("unknown account filter: %s", args[2])
			}
		}
		list, err := session.FetchAccounts(ctx, filter)
		if err != nil {
			return err
		}
		printAccounts(list)
		return nil

	case "allow":
		if len(args) < 3 {
			return fmt.Errorf("usage: accounts allow <relay-id> <pubkey>")
		}
		account, err := session.AllowPublicKey(ctx, args[2])
		if err != nil {
			return err
		}
		color.Green("Allowed %s", account.Pubkey)
		return nil

	case "block":
		if len(args) < 3 {
			return fmt.Errorf("usage: accounts block <relay-id> <pubkey>")
		}
		account, err := session.BlockPublicKey(ctx, args[2])
		if err != nil {
			return err
		}
		color.Red("Blocked %s", account.Pubkey)
		return nil

	case "remove":
		if len(args) < 3 {
			return fmt.Errorf("usage: accounts remove <relay-id> <pubkey>")
		}
		if err := session.RemoveAccount(ctx, args[2]); err != nil {
			return err
		}
		color.Yellow("Removed %s", args[2])
		return nil

	default:
		return fmt.Errorf("unknown accounts subcommand: %s", sub)
	}
}

func cmdJoin(ctx context.Context, session *console.Session, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: join <relay-id> <pubkey> <invoice>")
	}

	if err := session.PayToJoin(ctx, args[0], args[1], args[2]); err != nil {
		return err
	}
	color.Green("Join fee settled for %s", args[1])
	return nil
}

func printRelay(r *relay.Relay) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", r.ID)
	fmt.Fprintf(w, "Name\t%s\n", r.Meta.Name)
	if r.Meta.Description != "" {
		fmt.Fprintf(w, "Description\t%s\n", r.Meta.Description)
	}
	if r.Meta.Domain != "" {
		fmt.Fprintf(w, "Domain\t%s\n", r.Meta.Domain)
	}
	fmt.Fprintf(w, "Active\t%t\n", r.Active)
	if r.Config.PaidToJoin.Enabled {
		fmt.Fprintf(w, "Join fee\t%d sats (wallet %s)\n", r.Config.PaidToJoin.AmountSats, r.Config.Wallet)
	} else {
		fmt.Fprintf(w, "Join fee\tfree\n")
	}
	fmt.Fprintf(w, "Storage\t%d %s, %s\n",
		r.Config.Storage.Limit, r.Config.Storage.Unit, r.Config.Storage.Action)
	if r.Config.RequireAuthEvents {
		fmt.Fprintf(w, "Auth\trequired (skipped kinds: %v)\n", r.Config.SkippedAuthEventKinds)
	} else if len(r.Config.ForcedAuthEventKinds) > 0 {
		fmt.Fprintf(w, "Auth\tforced kinds: %v\n", r.Config.ForcedAuthEventKinds)
	}
	w.Flush()
}

func printRelayList(list []*relay.Relay) {
	if len(list) == 0 {
		fmt.Println("No relays")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACTIVE\tJOIN FEE\tSTORAGE")
	for _, r := range list {
		fee := "free"
		if r.Config.PaidToJoin.Enabled {
			fee = fmt.Sprintf("%d sats", r.Config.PaidToJoin.AmountSats)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%d %s\n",
			r.ID, r.Meta.Name, r.Active, fee, r.Config.Storage.Limit, r.Config.Storage.Unit)
	}
	w.Flush()
}

func printAccounts(list []*relay.Account) {
	if len(list) == 0 {
		fmt.Println("No accounts")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PUBKEY\tALLOWED\tBLOCKED\tPAID\tSATS\tSTORAGE")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%t\t%t\t%t\t%d\t%d\n",
			a.Pubkey, a.Allowed, a.Blocked, a.PaidToJoin, a.SpentSats, a.StorageUsed)
	}
	w.Flush()
}
