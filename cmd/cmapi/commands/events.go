package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fivetwenty-io/cmapi/internal/constants"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const unknownKind = "unknown"

// EventReport summarizes a notification.
type EventReport struct {
	Kind         string `json:"kind"                    yaml:"kind"`
	Verified     bool   `json:"verified"                yaml:"verified"`
	EventID      string `json:"event_id,omitempty"      yaml:"event_id,omitempty"`
	EventType    string `json:"event_type"              yaml:"event_type"`
	ObjectType   string `json:"object_type"             yaml:"object_type"`
	ObjectURL    string `json:"object_url,omitempty"    yaml:"object_url,omitempty"`
	ExecutionURL string `json:"execution_url,omitempty" yaml:"execution_url,omitempty"`
	OrgID        string `json:"org_id,omitempty"        yaml:"org_id,omitempty"`
}

type stepEvent interface {
	ExecutionURL() string
}

// NewEventsCommand creates the events command group.
func NewEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"event"},
		Short:   "Work with event notifications",
		Long:    "Verify signatures of Cloud Manager event notifications and classify them",
	}

	cmd.AddCommand(newEventsVerifyCommand())
	cmd.AddCommand(newEventsClassifyCommand())
	cmd.AddCommand(newEventsSignCommand())

	return cmd
}

func newEventsVerifyCommand() *cobra.Command {
	var (
		signature string
		secret    string
	)

	cmd := &cobra.Command{
		Use:   "verify [FILE]",
		Short: "Verify and classify a notification",
		Long:  "Check the signature of a notification read from FILE or stdin, then classify it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			report, err := verifyEvent(raw, signature, webhookSecret(secret))
			if err != nil {
				return err
			}

			return renderOutput(report, renderEventReport)
		},
	}

	cmd.Flags().StringVarP(&signature, "signature", "s", "", "value of the "+cmapi.SignatureHeader+" header")
	cmd.Flags().StringVar(&secret, "secret", "", "client secret of the integration (defaults to webhook_secret, then client_secret)")
	_ = cmd.MarkFlagRequired("signature")

	return cmd
}

func newEventsClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [FILE]",
		Short: "Classify a notification",
		Long:  "Determine the event kind of a notification read from FILE or stdin without checking its signature",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			report, err := classifyEvent(raw)
			if err != nil {
				return err
			}

			return renderOutput(report, renderEventReport)
		},
	}
}

func newEventsSignCommand() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "sign [FILE]",
		Short: "Sign a notification",
		Long:  "Print the " + cmapi.SignatureHeader + " header value of a payload, for testing webhook receivers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			secret = webhookSecret(secret)
			if secret == "" {
				return constants.ErrSecretNotProvided
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cmapi.ComputeSignature(raw, secret))

			return err
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "client secret of the integration (defaults to webhook_secret, then client_secret)")

	return cmd
}

// webhookSecret falls back to the configured webhook secret, then the client secret.
func webhookSecret(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if secret := viper.GetString(KeyWebhookSecret); secret != "" {
		return secret
	}

	return viper.GetString(KeyClientSecret)
}

func readPayload(stdin io.Reader, args []string) ([]byte, error) {
	var (
		raw []byte
		err error
	)

	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		// the payload path is supplied by the user on purpose
		// #nosec G304
		raw, err = os.ReadFile(args[0])
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	// Signatures cover the exact bytes sent; only a trailing newline added by
	// editors or shells is dropped.
	raw = bytes.TrimSuffix(raw, []byte("\n"))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, constants.ErrEmptyPayload
	}

	return raw, nil
}

func verifyEvent(raw []byte, signature, secret string) (*EventReport, error) {
	if secret == "" {
		return nil, constants.ErrSecretNotProvided
	}

	err := cmapi.VerifySignature(raw, signature, secret)
	if err != nil {
		return nil, fmt.Errorf("verifying notification: %w", err)
	}

	report, err := classifyEvent(raw)
	if err != nil {
		return nil, err
	}

	report.Verified = true

	return report, nil
}

func classifyEvent(raw []byte) (*EventReport, error) {
	envelope, err := cmapi.ReadEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("classifying notification: %w", err)
	}

	report := &EventReport{
		Kind:       unknownKind,
		EventType:  envelope.EventType,
		ObjectType: envelope.ObjectType,
	}

	event, err := cmapi.DecodeEvent(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding notification: %w", err)
	}

	if event == nil {
		return report, nil
	}

	header := event.Header()
	report.Kind = event.Kind().String()
	report.EventID = header.ID
	report.ObjectURL = event.ObjectURL()

	if header.To != nil {
		report.OrgID = header.To.OrgID
	}

	if step, ok := event.(stepEvent); ok {
		report.ExecutionURL = step.ExecutionURL()
	}

	return report, nil
}

func renderEventReport(report *EventReport) error {
	kind := report.Kind
	if entry := cmapi.LookupEventType(report.EventType, report.ObjectType); entry != nil {
		kind = displayKind(entry.Kind)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	_ = table.Append("Kind", kind)
	_ = table.Append("Verified", fmt.Sprintf("%t", report.Verified))
	_ = table.Append("Event ID", orNotAvailable(report.EventID))
	_ = table.Append("Event Type", report.EventType)
	_ = table.Append("Object Type", report.ObjectType)
	_ = table.Append("Object URL", orNotAvailable(report.ObjectURL))

	if report.ExecutionURL != "" {
		_ = table.Append("Execution URL", report.ExecutionURL)
	}

	if report.OrgID != "" {
		_ = table.Append("Organization", report.OrgID)
	}

	return table.Render()
}

func orNotAvailable(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
