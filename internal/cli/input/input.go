// Package input is the styled text field used by the interactive commands.
// The label turns green while the value is valid and red otherwise.
package input

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when stdin is not a terminal
var ErrNotInteractive = errors.New("input requires an interactive terminal")

var validate = validator.New()

// Input is a single-line text field
type Input struct {
	Label       string
	Placeholder string
	Default     string
	Secret      bool
	Validate    func(string) error

	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// Email returns a field that accepts a valid email address, prefilled with
// defaultValue
func Email(defaultValue string) Input {
	return Input{
		Label:       "Email",
		Placeholder: "you@example.com",
		Default:     defaultValue,
		Validate:    Tag("email"),
	}
}

// Password returns a masked field that requires a value
func Password() Input {
	return Input{
		Label:    "Password",
		Secret:   true,
		Validate: Tag("required"),
	}
}

// Tag builds a validation func from a validator tag such as "required,email"
func Tag(tag string) func(string) error {
	return func(value string) error {
		if err := validate.Var(value, tag); err != nil {
			return fmt.Errorf("invalid value")
		}
		return nil
	}
}

// Interactive reports whether stdin is a terminal
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Run shows the field and returns the entered value
func (i Input) Run() (string, error) {
	if i.Stdin == nil && !Interactive() {
		return "", ErrNotInteractive
	}

	label := i.Label
	if i.Placeholder != "" && i.Default == "" {
		label = fmt.Sprintf("%s (%s)", i.Label, i.Placeholder)
	}

	prompt := promptui.Prompt{
		Label:     label,
		Default:   i.Default,
		AllowEdit: i.Default != "",
		Validate:  promptui.ValidateFunc(i.Validate),
		Templates: i.templates(),
		Stdin:     i.Stdin,
		Stdout:    i.Stdout,
	}
	if i.Secret {
		prompt.Mask = '*'
		prompt.HideEntered = true
	}

	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("%s input cancelled: %w", i.Label, err)
	}
	return value, nil
}

func (i Input) templates() *promptui.PromptTemplates {
	return &promptui.PromptTemplates{
		Prompt:  "{{ . }}: ",
		Valid:   "{{ . | green }}: ",
		Invalid: "{{ . | red }}: ",
		Success: "{{ . | bold }}: ",
	}
}
