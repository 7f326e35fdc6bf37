package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mahdiidarabi/blind-rsa/internal/handoff"
	"github.com/mahdiidarabi/blind-rsa/internal/metrics"
	"github.com/mahdiidarabi/blind-rsa/internal/roles"
	"github.com/mahdiidarabi/blind-rsa/pkg/blindrsa"
)

var errSignatureInvalid = errors.New("signature is invalid")

// signatureOutput is written by unblind.
type signatureOutput struct {
	RequestID      uuid.UUID      `json:"request_id"`
	KeyFingerprint string         `json:"key_fingerprint"`
	Message        string         `json:"message"`
	Signature      handoff.HexInt `json:"signature"`
	Verified       bool           `json:"verified"`
	SignerID       string         `json:"signer_id,omitempty"`
}

func readMessage(cmd *cobra.Command) ([]byte, error) {
	message, _ := cmd.Flags().GetString("message")
	messageFile, _ := cmd.Flags().GetString("message-file")

	switch {
	case message != "" && messageFile != "":
		return nil, errors.New("use either --message or --message-file")
	case messageFile != "":
		data, err := os.ReadFile(messageFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", messageFile)
		}
		return data, nil
	case message != "":
		return []byte(message), nil
	default:
		return nil, errors.New("--message or --message-file is required")
	}
}

func addMessageFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("message", "m", "", "message to sign")
	cmd.Flags().String("message-file", "", "file holding the message to sign")
}

// BlindCmd blinds a message for the signer (owner phase 1).
func BlindCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blind",
		Short: "Blind a message and write a request for the signer (owner)",
		Args:  cobra.NoArgs,
		RunE:  a.blind,
	}
	cmd.Flags().String("key", "", "signer public key file (default "+publicKeyFile+")")
	cmd.Flags().String("out", "", "request file (default "+requestFile+")")
	addMessageFlags(cmd)
	return cmd
}

func (a *app) blind(cmd *cobra.Command, args []string) error {
	keyPath, _ := cmd.Flags().GetString("key")
	outPath, _ := cmd.Flags().GetString("out")

	message, err := readMessage(cmd)
	if err != nil {
		return err
	}

	kf, err := handoff.ReadKeyFile(a.path(keyPath, publicKeyFile))
	if err != nil {
		return err
	}
	pub, err := kf.PublicKey()
	if err != nil {
		return err
	}

	vault, err := a.openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	svc := roles.NewOwnerService(vault, a.metrics, a.logger).WithBlindingConfig(a.blindingConfig())
	req, err := svc.Prepare(commandContext(cmd), pub, message)
	if err != nil {
		return err
	}

	p := a.path(outPath, requestFile)
	if err := handoff.WriteFile(p, req); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Blinded message as request %s\n", req.ID)
	fmt.Fprintf(out, "  request: %s (send to signer)\n", p)
	return nil
}

// UnblindCmd unblinds and verifies a signer response (owner phase 2).
func UnblindCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unblind",
		Short: "Unblind a signer response and verify the signature (owner)",
		Args:  cobra.NoArgs,
		RunE:  a.unblind,
	}
	cmd.Flags().String("response", "", "response file (default "+responseFile+")")
	cmd.Flags().String("key", "", "signer public key file used for attestation (default "+publicKeyFile+")")
	cmd.Flags().Bool("skip-attestation", false, "do not check the response attestation")
	cmd.Flags().String("out", "", "signature file (default "+signatureFile+")")
	return cmd
}

func (a *app) unblind(cmd *cobra.Command, args []string) error {
	responsePath, _ := cmd.Flags().GetString("response")
	keyPath, _ := cmd.Flags().GetString("key")
	skipAttestation, _ := cmd.Flags().GetBool("skip-attestation")
	outPath, _ := cmd.Flags().GetString("out")

	resp, err := handoff.ReadResponse(a.path(responsePath, responseFile))
	if err != nil {
		return err
	}

	var signerID string
	if !skipAttestation {
		kf, err := handoff.ReadKeyFile(a.path(keyPath, publicKeyFile))
		if err != nil {
			return err
		}
		if kf.AttestationKey == "" {
			return errors.New("public key file has no attestation key; use --skip-attestation")
		}
		signerID = kf.AttestationKey
	}

	vault, err := a.openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	svc := roles.NewOwnerService(vault, a.metrics, a.logger)
	outcome, err := svc.Finish(commandContext(cmd), resp, signerID)
	if err != nil {
		return err
	}

	p := a.path(outPath, signatureFile)
	if err := handoff.WriteFile(p, &signatureOutput{
		RequestID:      outcome.RequestID,
		KeyFingerprint: resp.KeyFingerprint,
		Message:        string(outcome.Message),
		Signature:      handoff.NewHexInt(outcome.Signature),
		Verified:       outcome.Verified,
		SignerID:       outcome.SignerID,
	}); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Final signature: %s\n", blindrsa.EncodeInt(outcome.Signature))
	fmt.Fprintf(out, "  written to: %s\n", p)
	if !outcome.Verified {
		fmt.Fprintln(out, "Signature is invalid")
		return errSignatureInvalid
	}
	fmt.Fprintln(out, "Signature is valid")
	return nil
}

// VerifyCmd checks a signature against a message and public key.
func VerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an unblinded signature",
		Args:  cobra.NoArgs,
		RunE:  a.verify,
	}
	cmd.Flags().String("key", "", "signer public key file (default "+publicKeyFile+")")
	cmd.Flags().String("signature", "", "signature in hex")
	cmd.MarkFlagRequired("signature")
	addMessageFlags(cmd)
	return cmd
}

func (a *app) verify(cmd *cobra.Command, args []string) error {
	keyPath, _ := cmd.Flags().GetString("key")
	sigHex, _ := cmd.Flags().GetString("signature")

	message, err := readMessage(cmd)
	if err != nil {
		return err
	}
	sig, err := blindrsa.DecodeInt(sigHex)
	if err != nil {
		return err
	}
	kf, err := handoff.ReadKeyFile(a.path(keyPath, publicKeyFile))
	if err != nil {
		return err
	}
	pub, err := kf.PublicKey()
	if err != nil {
		return err
	}

	ok, err := blindrsa.Verify(pub, message, sig)
	if err != nil {
		a.metrics.RecordFailure(metrics.OpVerify)
		return err
	}
	a.metrics.RecordVerification(ok)

	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Signature is invalid")
		return errSignatureInvalid
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signature is valid")
	return nil
}

// PendingCmd lists requests still waiting for a signer response.
func PendingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List blinded requests awaiting a response (owner)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := a.openVault()
			if err != nil {
				return err
			}
			defer vault.Close()

			reqs, err := vault.ListPending(commandContext(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(reqs) == 0 {
				fmt.Fprintln(out, "No pending requests")
				return nil
			}
			for _, r := range reqs {
				fmt.Fprintf(out, "%s  %s  key %.16s\n", r.RequestID, r.CreatedAt.Format(time.RFC3339), r.KeyFingerprint)
			}
			return nil
		},
	}
}
