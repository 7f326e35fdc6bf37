package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mahdiidarabi/blind-rsa/internal/handoff"
	"github.com/mahdiidarabi/blind-rsa/internal/roles"
	"github.com/mahdiidarabi/blind-rsa/internal/store"
	"github.com/mahdiidarabi/blind-rsa/pkg/blindrsa"
)

const demoMessage = "This is my secret vote: Candidate A"

// DemoCmd runs every protocol round in memory.
func DemoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run key generation, blinding, signing, unblinding and verification in memory",
		Args:  cobra.NoArgs,
		RunE:  a.demo,
	}
	cmd.Flags().Int("bits", 0, "modulus size in bits (default from config)")
	addMessageFlags(cmd)
	return cmd
}

func (a *app) demo(cmd *cobra.Command, args []string) error {
	bits, _ := cmd.Flags().GetInt("bits")
	if bits == 0 {
		bits = a.cfg.KeyBits
	}
	message := []byte(demoMessage)
	if cmd.Flags().Changed("message") || cmd.Flags().Changed("message-file") {
		var err error
		if message, err = readMessage(cmd); err != nil {
			return err
		}
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	keys, err := blindrsa.GenerateKeysWithConfig(a.keyGenConfig(bits))
	if err != nil {
		return err
	}
	attestor, err := handoff.NewAttestor()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Signer key:       %d bits, fingerprint %s\n", keys.Public.Size(), keys.Public.Fingerprint())

	vault, err := store.Open("", a.logger)
	if err != nil {
		return err
	}
	defer vault.Close()
	journal, err := store.Open("", a.logger)
	if err != nil {
		return err
	}
	defer journal.Close()

	owner := roles.NewOwnerService(vault, a.metrics, a.logger).WithBlindingConfig(a.blindingConfig())
	signer, err := roles.NewSignerService(keys, attestor, journal, a.metrics, a.logger)
	if err != nil {
		return err
	}

	req, err := owner.Prepare(ctx, keys.Public, message)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Message:          %q\n", message)
	fmt.Fprintf(out, "Digest:           %s\n", blindrsa.EncodeInt(blindrsa.HashMessage(message)))
	fmt.Fprintf(out, "Blinded message:  %s\n", req.BlindedMessage)

	resp, err := signer.Handle(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Blind signature:  %s\n", resp.BlindSignature)

	outcome, err := owner.Finish(ctx, resp, attestor.SignerID())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Final signature:  %s\n", blindrsa.EncodeInt(outcome.Signature))

	if !outcome.Verified {
		fmt.Fprintln(out, "Signature is invalid")
		return errSignatureInvalid
	}
	fmt.Fprintln(out, "Signature is valid")
	return nil
}
