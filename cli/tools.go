package cli

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"webpconv/config"
	"webpconv/encoder"
	"webpconv/utils"
)

func runEncoders(args []string) error {
	fs := flag.NewFlagSet("encoders", flag.ContinueOnError)
	configPath := fs.String("config", "", "settings file (YAML)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	encoder.RegisterDefaults()
	for _, name := range encoder.Names() {
		if name == settings.Encoder {
			fmt.Fprintln(stdout, okStyle.Render("* "+name))
			continue
		}
		fmt.Fprintln(stdout, "  "+name)
	}
	return nil
}

// runToken issues an API token signed with the configured secret
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	configPath := fs.String("config", "", "settings file (YAML)")
	subject := fs.String("subject", "webpconv", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime (0 = no expiry)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if settings.Server.JWTSecret == "" {
		return errors.New("no JWT secret configured (set WEBPCONV_JWT_SECRET or server.jwt_secret)")
	}

	token, err := utils.IssueToken(*subject, settings.Server.Issuer, *ttl, []byte(settings.Server.JWTSecret))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}
