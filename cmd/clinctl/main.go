package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/clinchain/clinchain/internal/identity"
	"github.com/clinchain/clinchain/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	token     string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clinctl",
	Short: "clinchain command-line interface",
	Long: `clinctl is the command-line interface for a clinchain service.

It records audit events, manages documents and freeze anchors, and
verifies the integrity of the audit chain and anchor chains.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.clinchain")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if token == "" {
			token = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.clinchain/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "clinchain service URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer service token")

	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(anchorCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	opts := []client.Option{}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(serverURL, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── event ────────────────────────────────────────────────────────────────────

var (
	eventActor   string
	eventDetails string
)

var eventCmd = &cobra.Command{
	Use:   "event <type> <resource-id>",
	Short: "Record an audit event",
	Long: `event queues an audit event for the given resource.

The service digests the actor, resource, and action details before
chaining; raw identifiers never appear in the stored entry:

  clinctl event phi_scan dataset-42 --actor analyst@site-3 --details '{"hits":0}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var details any
		if eventDetails != "" {
			if err := json.Unmarshal([]byte(eventDetails), &details); err != nil {
				return fmt.Errorf("invalid --details JSON: %w", err)
			}
		}

		id, err := newClient().QueueEvent(context.Background(), args[0], eventActor, args[1], details)
		if err != nil {
			return fmt.Errorf("queue event: %w", err)
		}
		fmt.Printf("✓ Event queued\n\n  Entry ID: %s\n", id)
		return nil
	},
}

func init() {
	eventCmd.Flags().StringVar(&eventActor, "actor", "", "Actor identifier (digested server-side)")
	eventCmd.Flags().StringVar(&eventDetails, "details", "", "Action details as a JSON document")
	_ = eventCmd.MarkFlagRequired("actor")
}

// ── chain ────────────────────────────────────────────────────────────────────

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Inspect and verify the audit chain",
}

var chainStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored entry count and current chain tip",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newClient().ChainStatus(context.Background())
		if err != nil {
			return fmt.Errorf("chain status: %w", err)
		}
		fmt.Printf("Entries: %d\n", st.Entries)
		fmt.Printf("Tip:     %s\n", st.Tip)
		return nil
	},
}

var chainVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Walk the stored audit chain and verify every link",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := newClient().VerifyChain(context.Background())
		if err != nil {
			return fmt.Errorf("verify chain: %w", err)
		}
		if !report.Valid {
			fmt.Printf("✗ Chain INVALID after %d entries\n\n  %s\n", report.Entries, report.Detail)
			os.Exit(1)
		}
		fmt.Printf("✓ Chain valid (%d entries)\n", report.Entries)
		return nil
	},
}

func init() {
	chainCmd.AddCommand(chainStatusCmd)
	chainCmd.AddCommand(chainVerifyCmd)
}

// ── doc ──────────────────────────────────────────────────────────────────────

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage documents and freezing",
}

var (
	docTitle string
	docBody  string
)

var docCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft document",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := newClient().CreateDocument(context.Background(), docTitle, docBody)
		if err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		fmt.Printf("✓ Document created\n\n  ID:      %s\n  Version: %d\n", doc.ID, doc.Version)
		return nil
	},
}

var docGetCmd = &cobra.Command{
	Use:   "get <document-id>",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := newClient().GetDocument(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID:\t%s\n", doc.ID)
		fmt.Fprintf(w, "Title:\t%s\n", doc.Title)
		fmt.Fprintf(w, "Version:\t%d\n", doc.Version)
		fmt.Fprintf(w, "Status:\t%s\n", doc.Status)
		if doc.FrozenAt != nil {
			fmt.Fprintf(w, "Frozen:\t%s by %s\n", doc.FrozenAt.Format(time.RFC3339), doc.FrozenBy)
		}
		return w.Flush()
	},
}

var docUpdateCmd = &cobra.Command{
	Use:   "update <document-id>",
	Short: "Replace a draft document's title and body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := newClient().UpdateDocument(context.Background(), args[0], docTitle, docBody)
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		fmt.Printf("✓ Document updated\n\n  Version: %d\n", doc.Version)
		return nil
	},
}

var docFreezeCmd = &cobra.Command{
	Use:   "freeze <document-id>",
	Short: "Freeze a document and create its snapshot anchor",
	Long: `freeze makes a document immutable and records a content-addressed
snapshot anchor chained to the document's previous anchor. Freezing is
one-way: a frozen document rejects all further edits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		anchor, err := newClient().Freeze(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("freeze document: %w", err)
		}
		fmt.Printf("✓ Document frozen\n\n")
		fmt.Printf("  Anchor ID: %s\n", anchor.AnchorID)
		fmt.Printf("  Version:   %d\n", anchor.VersionNumber)
		fmt.Printf("  Digest:    %s\n", anchor.CurrentDigest)
		fmt.Printf("  Previous:  %s\n", anchor.PrevDigest)
		return nil
	},
}

func init() {
	docCreateCmd.Flags().StringVar(&docTitle, "title", "", "Document title")
	docCreateCmd.Flags().StringVar(&docBody, "body", "", "Document body")
	_ = docCreateCmd.MarkFlagRequired("title")

	docUpdateCmd.Flags().StringVar(&docTitle, "title", "", "Document title")
	docUpdateCmd.Flags().StringVar(&docBody, "body", "", "Document body")

	docCmd.AddCommand(docCreateCmd)
	docCmd.AddCommand(docGetCmd)
	docCmd.AddCommand(docUpdateCmd)
	docCmd.AddCommand(docFreezeCmd)
}

// ── anchor ───────────────────────────────────────────────────────────────────

var anchorCmd = &cobra.Command{
	Use:   "anchor",
	Short: "Inspect and verify snapshot anchors",
}

var anchorLatestCmd = &cobra.Command{
	Use:   "latest <document-id>",
	Short: "Show a document's most recent anchor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		anchor, err := newClient().LatestAnchor(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("latest anchor: %w", err)
		}
		return printJSON(anchor)
	},
}

var anchorVerifyCmd = &cobra.Command{
	Use:   "verify <anchor-id>",
	Short: "Recompute an anchor's digest and check its chain link",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().VerifyAnchor(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("verify anchor: %w", err)
		}
		if !res.Valid {
			fmt.Printf("✗ Anchor INVALID\n\n  %s\n", res.Detail)
			os.Exit(1)
		}
		fmt.Printf("✓ Anchor valid (%s)\n", res.AnchorID)
		return nil
	},
}

func init() {
	anchorVerifyCmd.Args = cobra.ExactArgs(1)
	anchorCmd.AddCommand(anchorLatestCmd)
	anchorCmd.AddCommand(anchorVerifyCmd)
}

// ── token ────────────────────────────────────────────────────────────────────

var (
	tokenSecret string
	tokenIssuer string
	tokenTTL    time.Duration
	tokenScopes []string
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a service token for local development",
	Long: `token signs a short-lived HS256 service token with the shared secret.
The secret must match the service's auth.secret configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenSecret == "" {
			tokenSecret = viper.GetString("auth_secret")
		}
		if tokenSecret == "" {
			return fmt.Errorf("--secret is required (or set AUTH_SECRET)")
		}

		issuer, err := identity.NewTokenIssuer([]byte(tokenSecret), tokenIssuer, tokenTTL)
		if err != nil {
			return err
		}
		signed, err := issuer.Issue(args[0], tokenScopes)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Println(signed)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "Shared HS256 secret (or AUTH_SECRET env var)")
	tokenCmd.Flags().StringVar(&tokenIssuer, "issuer", "http://localhost:8080", "Issuer URL embedded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", nil, "Scopes to embed (repeatable)")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the clinctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clinctl %s\n", version)
	},
}
