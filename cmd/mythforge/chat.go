package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mythforge/internal/config"
	"mythforge/internal/entity"
	"mythforge/internal/llm"
	"mythforge/internal/logging"
	"mythforge/internal/orchestrator"
	"mythforge/internal/perception"
	"mythforge/internal/phase"
	"mythforge/internal/prompt"
	"mythforge/internal/schema"
	"mythforge/internal/store"
	"mythforge/internal/validate"
)

var chatMode string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive creation session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatMode, "mode", "universe", "creation mode: universe or character")
}

func runChat(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return err
	}
	defer log.Sync()

	registry := schema.NewRegistry()
	classifier := perception.NewClassifier(registry, perception.Config{
		DefaultLanguage:      cfg.Language.Default,
		ConfidenceThreshold:  cfg.Perception.ConfidenceThreshold,
		FieldConfidenceFloor: cfg.Perception.FieldConfidenceFloor,
	}, log)
	validator := validate.New(registry, log)
	phases := phase.NewEngine(registry, log)

	budget := prompt.DefaultBudget()
	budget.Total = cfg.Prompt.TokenBudget
	prompts := prompt.NewBuilder(prompt.NewRegistry(), budget, log)

	var client llm.Client = llm.Unavailable{}
	if cfg.LLM.APIKey != "" {
		genai, err := llm.NewGenAIClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			log.Warn("LLM client unavailable, running rule-based only", zap.Error(err))
		} else {
			client = genai
		}
	}

	var db store.Store = store.NewMemory()
	if cfg.Store.Path != "" {
		sqlite, err := store.NewSQLite(cfg.Store.Path, log)
		if err != nil {
			return err
		}
		db = sqlite
	}
	defer db.Close()

	orch := orchestrator.New(registry, classifier, validator, phases, prompts, client, orchestrator.Options{
		AutoAdvance:            cfg.Session.AutoAdvance,
		MaxClarificationRounds: cfg.Session.MaxClarificationRounds,
		MaxHistory:             cfg.Session.MaxHistory,
		SessionTimeout:         cfg.Session.Timeout,
		DefaultLanguage:        cfg.Language.Default,
	}, log)

	mode := phase.Mode(chatMode)
	if mode != phase.ModeUniverse && mode != phase.ModeCharacter {
		return fmt.Errorf("unknown mode %q", chatMode)
	}

	started := orch.StartSession(mode, nil, nil)
	fmt.Println(started.Message)
	for _, q := range started.QuickReplies {
		fmt.Println("  -", q)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orch.RunExpirySweep(ctx, cfg.Session.SweepInterval)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return repl(ctx, orch, db, started.SessionID, mode)
	})
	return g.Wait()
}

func repl(ctx context.Context, orch *orchestrator.Orchestrator, db store.Store, sessionID string, mode phase.Mode) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var result orchestrator.Result
		switch line {
		case "/quit", "/exit":
			result = orch.EndSession(sessionID)
			if result.Entity != nil {
				if id, err := db.Save(ctx, mode.Kind(), result.Entity); err == nil {
					fmt.Println("saved as", id)
				}
			}
			return nil
		case "/undo":
			result = orch.Undo(sessionID)
		case "/redo":
			result = orch.Redo(sessionID)
		case "/generate":
			result = orch.GenerateFinalEntity(ctx, sessionID)
		case "/advance":
			result = orch.AdvancePhase(ctx, sessionID)
		default:
			result = orch.ProcessMessage(ctx, sessionID, line)
		}

		printResult(result)
	}
}

func printResult(r orchestrator.Result) {
	fmt.Println(r.Message)
	for _, q := range r.Questions {
		fmt.Println("  ?", q)
	}
	for _, q := range r.QuickReplies {
		fmt.Println("  -", q)
	}
	for _, issue := range r.Errors {
		fmt.Printf("  ! %s: %s\n", issue.Field, issue.Message.EN)
	}
	if r.Entity != nil {
		printEntity(r.Entity)
	}
}

func printEntity(e entity.Entity) {
	body, err := e.MarshalJSON()
	if err != nil {
		return
	}
	fmt.Println(string(body))
}
