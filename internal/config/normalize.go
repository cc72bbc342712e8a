package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	c.Avatar.Provider = strings.ToLower(strings.TrimSpace(c.Avatar.Provider))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	// Different vendors enforce different per-clip ceilings. Only apply a
	// provider default when the operator left the field unset.
	if c.Avatar.MaxClipChars <= 0 {
		c.Avatar.MaxClipChars = ClipCharLimit(c.Avatar.Provider)
	}

	lang := strings.TrimSpace(c.Workflow.Language)
	if lang == "" {
		lang = "tr"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("workflow.language: invalid language tag %q: %w", lang, err)
	}
	c.Workflow.Language = tag.String()

	return nil
}
