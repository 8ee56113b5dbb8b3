package common

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// PromptConfig asks for the settings most installations change and returns a
// copy of base with the answers applied.
func PromptConfig(base *Config, opts ...survey.AskOpt) (*Config, error) {
	c := *base

	answers := struct {
		RegistryURL     string
		Insecure        bool
		Username        string
		Port            string
		UploadDir       string
		KeepLocalTags bool
	}{}

	questions := []*survey.Question{
		{
			Name:     "RegistryURL",
			Prompt:   &survey.Input{Message: "Registry URL:", Default: c.Registry.URL},
			Validate: survey.Required,
		},
		{
			Name:   "Insecure",
			Prompt: &survey.Confirm{Message: "Skip TLS verification for the registry?", Default: c.Registry.Insecure},
		},
		{
			Name:   "Username",
			Prompt: &survey.Input{Message: "Registry username (empty for anonymous):", Default: c.Registry.Username},
		},
		{
			Name:     "Port",
			Prompt:   &survey.Input{Message: "HTTP port:", Default: c.Http.Port},
			Validate: survey.Required,
		},
		{
			Name:   "UploadDir",
			Prompt: &survey.Input{Message: "Upload staging directory:", Default: c.General.UploadDir},
		},
		{
			Name:   "KeepLocalTags",
			Prompt: &survey.Confirm{Message: "Keep registry tags in the local engine after pushing?", Default: c.Pipeline.KeepLocalTags},
		},
	}
	if err := survey.Ask(questions, &answers, opts...); err != nil {
		return nil, fmt.Errorf("config prompt failed: %w", err)
	}

	c.Registry.URL = answers.RegistryURL
	c.Registry.Insecure = answers.Insecure
	c.Registry.Username = answers.Username
	c.Http.Port = answers.Port
	c.General.UploadDir = answers.UploadDir
	c.Pipeline.KeepLocalTags = answers.KeepLocalTags

	if c.Registry.Username != "" {
		password := ""
		if err := survey.AskOne(&survey.Password{Message: "Registry password:"}, &password, opts...); err != nil {
			return nil, fmt.Errorf("config prompt failed: %w", err)
		}
		c.Registry.Password = password
	}
	return &c, nil
}
