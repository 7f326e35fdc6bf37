package main

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mahdiidarabi/blind-rsa/internal/handoff"
	"github.com/mahdiidarabi/blind-rsa/internal/roles"
	"github.com/mahdiidarabi/blind-rsa/pkg/blindrsa"
)

// KeygenCmd generates the signer key files.
func KeygenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signer RSA key pair and attestation key",
		Args:  cobra.NoArgs,
		RunE:  a.keygen,
	}
	cmd.Flags().Int("bits", 0, "modulus size in bits (default from config)")
	cmd.Flags().String("out-dir", "", "directory for the key files (default data dir)")
	cmd.Flags().Bool("no-attest", false, "do not create an attestation key")
	return cmd
}

func (a *app) keygen(cmd *cobra.Command, args []string) error {
	bits, _ := cmd.Flags().GetInt("bits")
	outDir, _ := cmd.Flags().GetString("out-dir")
	noAttest, _ := cmd.Flags().GetBool("no-attest")

	if bits == 0 {
		bits = a.cfg.KeyBits
	}
	if outDir == "" {
		outDir = a.cfg.DataDir
	}

	keys, err := blindrsa.GenerateKeysWithConfig(a.keyGenConfig(bits))
	if err != nil {
		return err
	}

	var attestor *handoff.Attestor
	if !noAttest {
		if attestor, err = handoff.NewAttestor(); err != nil {
			return err
		}
	}

	priv := handoff.NewPrivateKeyFile(keys, attestor)
	privPath := filepath.Join(outDir, privateKeyFile)
	pubPath := filepath.Join(outDir, publicKeyFile)
	if err := handoff.WriteFile(privPath, priv); err != nil {
		return err
	}
	if err := handoff.WriteFile(pubPath, priv.Public()); err != nil {
		return err
	}

	a.logger.Info("generated signer key", "bits", bits, "key", priv.Fingerprint)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated %d-bit key %s\n", keys.Public.Size(), priv.Fingerprint)
	fmt.Fprintf(out, "  private key: %s (keep secret)\n", privPath)
	fmt.Fprintf(out, "  public key:  %s\n", pubPath)
	return nil
}

// SignCmd signs blind requests with the signer's private key.
func SignCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign blinded requests (signer)",
		Args:  cobra.NoArgs,
		RunE:  a.sign,
	}
	cmd.Flags().String("key", "", "signer private key file (default "+privateKeyFile+")")
	cmd.Flags().StringSlice("request", nil, "blind request file(s) (default "+requestFile+")")
	cmd.Flags().String("out", "", "response file for a single request (default "+responseFile+")")
	return cmd
}

func (a *app) sign(cmd *cobra.Command, args []string) error {
	keyPath, _ := cmd.Flags().GetString("key")
	requestPaths, _ := cmd.Flags().GetStringSlice("request")
	outPath, _ := cmd.Flags().GetString("out")

	if len(requestPaths) == 0 {
		requestPaths = []string{requestFile}
	}
	if outPath != "" && len(requestPaths) > 1 {
		return errors.New("--out can only be used with a single request")
	}

	kf, err := handoff.ReadKeyFile(a.path(keyPath, privateKeyFile))
	if err != nil {
		return err
	}
	keys, err := kf.KeyPair()
	if err != nil {
		return err
	}
	attestor, err := kf.Attestor()
	if err != nil {
		return err
	}

	reqs := make([]*handoff.BlindRequest, len(requestPaths))
	for i, p := range requestPaths {
		if reqs[i], err = handoff.ReadRequest(a.cfg.ResolvePath(p)); err != nil {
			return err
		}
	}

	journal, err := a.openJournal()
	if err != nil {
		return err
	}
	defer journal.Close()

	svc, err := roles.NewSignerService(keys, attestor, journal, a.metrics, a.logger)
	if err != nil {
		return err
	}
	resps, err := svc.WithWorkers(a.cfg.Workers).HandleBatch(commandContext(cmd), reqs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, resp := range resps {
		p := a.path(outPath, responseFile)
		if len(resps) > 1 {
			p = a.cfg.ResolvePath(fmt.Sprintf("blind_response_%s.json", resp.RequestID))
		}
		if err := handoff.WriteFile(p, resp); err != nil {
			return err
		}
		fmt.Fprintf(out, "Signed request %s -> %s\n", reqs[i].ID, p)
	}
	return nil
}
