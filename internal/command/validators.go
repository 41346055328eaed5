// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/assetcache/internal/backend"
	"github.com/staranto/assetcache/internal/output"
)

// GlobalFlagsValidator checks flag combinations that no single validator can.
func GlobalFlagsValidator(ctx context.Context, c *cli.Command) error {
	if c.String("store") == backend.KindS3 && c.String("s3-bucket") == "" {
		return errors.New("--store=s3 needs --s3-bucket")
	}
	return nil
}

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func MustBeTrueValidator(value any) error {
	if !value.(bool) {
		return errors.New("must be true")
	}
	return nil
}

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

func StoreValidator(value any) error {
	if !slices.Contains(backend.Kinds, value.(string)) {
		return fmt.Errorf("must be one of %v", backend.Kinds)
	}
	return nil
}

// OriginValidator requires an absolute http(s) URL with no path beyond /.
func OriginValidator(value any) error {
	s := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an http or https URL")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	if u.Path != "" && u.Path != "/" {
		return errors.New("must not include a path")
	}
	return nil
}
