package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mythforge/internal/entity"
	"mythforge/internal/logging"
	"mythforge/internal/schema"
	"mythforge/internal/validate"
)

var validateKind string

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate an entity JSON file against its schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(args[0])
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateKind, "kind", "universe", "entity kind: universe, character, stat, race, skill, rule")
}

func runValidate(path string) error {
	kind := entity.Kind(validateKind)
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q", validateKind)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	e, err := entity.FromJSON(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	log, err := logging.New(logging.Options{Level: "warn"})
	if err != nil {
		return err
	}
	defer log.Sync()

	validator := validate.New(schema.NewRegistry(), log)
	result, err := validator.ValidateComplete(e, kind, nil)
	if err != nil {
		return err
	}

	for _, issue := range result.Validation.Errors {
		fmt.Printf("error   %-20s %s (%s)\n", issue.Field, issue.Message.EN, issue.Code)
	}
	for _, issue := range result.Validation.Warnings {
		fmt.Printf("warning %-20s %s (%s)\n", issue.Field, issue.Message.EN, issue.Code)
	}
	for _, issue := range result.Consistency.Issues {
		fmt.Printf("%-7s %-20s %s (%s)\n", issue.Severity, issue.Field, issue.Message.EN, issue.Code)
	}
	for _, rec := range result.Size.Recommendations {
		fmt.Println("size   ", rec)
	}

	if !result.Valid {
		return fmt.Errorf("%s is not valid", path)
	}
	fmt.Printf("%s is valid (%d bytes)\n", path, result.Size.Size)
	return nil
}
