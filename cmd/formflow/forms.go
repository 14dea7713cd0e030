package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	g "github.com/reoring/formflow/dsl"
	"github.com/reoring/formflow/rules"
)

// builtinForms maps form names to schema constructors bound to a kit, so
// messages follow the configured language.
var builtinForms = map[string]func(k g.Kit) *g.ObjectSchema{
	"signup":  signupForm,
	"contact": contactForm,
}

func signupForm(k g.Kit) *g.ObjectSchema {
	return k.Object().
		Field("email", k.String().Trim().ToLower().Email()).
		Field("password", k.String().
			Min(8).
			Pattern(`[0-9]`, "password needs a digit").
			Pattern(`[A-Z]`, "password needs an upper-case letter")).
		Field("confirmPassword", k.String()).
		Field("terms", k.Bool().CoerceFromString().True("you must accept the terms")).
		Optional("displayName", k.String().StripHTML().Trim().Max(40)).
		Refine("confirm", rules.FieldsMatch("password", "confirmPassword", "passwords do not match"))
}

func contactForm(k g.Kit) *g.ObjectSchema {
	return k.Object().
		Field("name", k.String().Trim().NonEmpty().Max(80)).
		Field("email", k.String().Trim().Email()).
		Field("topic", k.Enum("sales", "support", "other")).
		Field("message", k.String().StripHTML().Trim().Min(10).Max(2000)).
		Optional("company", k.String().Trim()).
		Optional("seats", k.Number().CoerceFromString().Int().Positive()).
		Optional("attachments", g.ArrayWith[string](k, k.String().URL()).Max(5)).
		Refine("company-for-sales", rules.RequiredIf(rules.If("topic", rules.Eq, "sales"), "company", "company is required for sales enquiries"))
}

func formNames() []string {
	names := make([]string, 0, len(builtinForms))
	for n := range builtinForms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (a *app) formsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List built-in forms and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := a.cfg.Messages()
			if err != nil {
				return err
			}
			k := g.NewKit(msgs)
			for _, name := range formNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", name, builtinForms[name](k).Fields())
			}
			return nil
		},
	}
}
