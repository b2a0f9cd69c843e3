// FILE: logpulse/src/internal/auth/generator.go
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// GeneratorCommand produces credentials for the [server.auth] section.
type GeneratorCommand struct {
	output io.Writer
	errOut io.Writer
	prompt func(prompt string) (string, error)
	now    func() time.Time
}

func NewGeneratorCommand() *GeneratorCommand {
	g := &GeneratorCommand{
		output: os.Stdout,
		errOut: os.Stderr,
		now:    time.Now,
	}
	g.prompt = g.promptPassword
	return g
}

func (g *GeneratorCommand) Execute(args []string) error {
	cmd := flag.NewFlagSet("auth-gen", flag.ContinueOnError)
	cmd.SetOutput(g.errOut)

	var (
		username = cmd.String("u", "", "Username for basic auth")
		password = cmd.String("p", "", "Password to hash (will prompt if not provided)")
		cost     = cmd.Int("c", bcrypt.DefaultCost, "bcrypt cost")
		genKey   = cmd.Bool("k", false, "Generate random JWT signing key")
		keyLen   = cmd.Int("l", 32, "Signing key length in bytes")
		jwtKey   = cmd.String("jwt-key", "", "Signing key used to issue a bearer token for -u")
		jwtTTL   = cmd.Duration("ttl", 24*time.Hour, "Bearer token lifetime")
	)

	cmd.Usage = func() {
		fmt.Fprintln(g.errOut, "Generate authentication credentials for logpulse")
		fmt.Fprintln(g.errOut, "\nUsage: auth-gen [options]")
		fmt.Fprintln(g.errOut, "\nExamples:")
		fmt.Fprintln(g.errOut, "  # bcrypt hash for the dashboard user")
		fmt.Fprintln(g.errOut, "  auth-gen -u admin")
		fmt.Fprintln(g.errOut, "  ")
		fmt.Fprintln(g.errOut, "  # random JWT signing key")
		fmt.Fprintln(g.errOut, "  auth-gen -k -l 64")
		fmt.Fprintln(g.errOut, "  ")
		fmt.Fprintln(g.errOut, "  # bearer token valid for a week")
		fmt.Fprintln(g.errOut, "  auth-gen -u admin -jwt-key <key> -ttl 168h")
		fmt.Fprintln(g.errOut, "\nOptions:")
		cmd.PrintDefaults()
	}

	if err := cmd.Parse(args); err != nil {
		return err
	}

	if *genKey {
		return g.generateSigningKey(*keyLen)
	}

	if *username == "" {
		cmd.Usage()
		return fmt.Errorf("username required")
	}

	if *jwtKey != "" {
		return g.generateToken(*jwtKey, *username, *jwtTTL)
	}

	return g.generatePasswordHash(*username, *password, *cost)
}

func (g *GeneratorCommand) generatePasswordHash(username, password string, cost int) error {
	if password == "" {
		pass1, err := g.prompt("Enter password: ")
		if err != nil {
			return err
		}
		pass2, err := g.prompt("Confirm password: ")
		if err != nil {
			return err
		}
		if pass1 != pass2 {
			return fmt.Errorf("passwords don't match")
		}
		password = pass1
	}
	if password == "" {
		return fmt.Errorf("password is empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fmt.Fprintln(g.output, "\n# TOML Configuration (add to logpulse.toml):")
	fmt.Fprintln(g.output, "[server.auth]")
	fmt.Fprintf(g.output, "user = %q\n", username)
	fmt.Fprintf(g.output, "pass = %q\n", string(hash))

	return nil
}

func (g *GeneratorCommand) generateSigningKey(length int) error {
	if length < 32 {
		fmt.Fprintln(g.errOut, "Warning: HS256 keys < 32 bytes are weak")
	}
	if length > 512 {
		return fmt.Errorf("key length exceeds maximum (512 bytes)")
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate random bytes: %w", err)
	}
	b64 := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(key)

	fmt.Fprintln(g.output, "\n# TOML Configuration (add to logpulse.toml):")
	fmt.Fprintln(g.output, "[server]")
	fmt.Fprintf(g.output, "jwt_signing_key = %q\n", b64)

	return nil
}

func (g *GeneratorCommand) generateToken(key, username string, ttl time.Duration) error {
	now := g.now()
	token, err := IssueToken(key, username, ttl, now)
	if err != nil {
		return err
	}

	fmt.Fprintln(g.output, "\n# Bearer token:")
	fmt.Fprintln(g.output, token)
	fmt.Fprintf(g.output, "# Expires: %s\n", now.Add(ttl).Format(time.RFC3339))
	fmt.Fprintf(g.output, "# Usage: curl -H \"Authorization: Bearer %s\" http://localhost:9001/metrics\n", token)

	return nil
}

func (g *GeneratorCommand) promptPassword(prompt string) (string, error) {
	fmt.Fprint(g.errOut, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(g.errOut)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
