package main

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dmcosta/inspeq/internal/handler"
	appI18n "github.com/dmcosta/inspeq/internal/i18n"
	"github.com/dmcosta/inspeq/internal/llm"
	"github.com/dmcosta/inspeq/internal/model"
	"github.com/dmcosta/inspeq/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "inspeq",
		Short: "Workplace-safety checklist and inspection server",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), exportCmd(), generateCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `inspeq --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP checklist server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "inspeq.db", "SQLite database path")
	f.StringP("lang", "l", "pt", "Message language (en, pt)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /safety)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import checklist questions from CSV files",
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "inspeq.db", "SQLite database path")
	f.StringSliceP("files", "f", nil, "Paths to question CSV files (repeatable)")
	f.String("checklist", "", "Target checklist id (created when empty)")
	f.String("title", "Imported checklist", "Title for a newly created checklist")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("files")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export inspection results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "inspeq.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate checklist questions with an LLM",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.String("db", "inspeq.db", "SQLite database path")
	f.StringP("topic", "t", "", "Safety topic to generate questions for (required)")
	f.IntP("num-questions", "n", 10, "Number of questions to generate")
	f.String("checklist", "", "Target checklist id (created when empty)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("topic")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INSPEQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("inspeq")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/inspeq")
	v.AddConfigPath("/etc/inspeq")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	h := handler.New(db, model.ServerConfig{
		Addr:     v.GetString("addr"),
		Lang:     lang,
		BasePath: basePath,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", lang,
		"base_path", basePath,
	)
	return http.ListenAndServe(addr, r)
}

func runImport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	checklistID, err := ensureChecklist(db, v.GetString("checklist"), v.GetString("title"))
	if err != nil {
		return err
	}

	for _, path := range v.GetStringSlice("files") {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("questions file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("questions file changed since last import, skipping to avoid duplicating questions",
				"path", path)
			continue
		}

		count, err := importCSV(db, checklistID, data)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported questions", "path", path, "checklist", checklistID, "count", count)
	}

	return nil
}

// importCSV loads questions from CSV content. Expected header:
//
//	ref,parent_ref,text,response_type,required,options,weight,condition_value,order,sub_checklist_id
//
// ref/parent_ref are file-local keys letting one file express a hierarchy;
// they are resolved to freshly minted ids on insert. Options are separated
// by "|". Response types may use legacy spellings.
func importCSV(db *store.Store, checklistID string, data []byte) (int, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = 10

	records, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) < 2 {
		return 0, fmt.Errorf("no data rows")
	}

	// Two passes: insert every row, then rewrite parent references once all
	// file-local refs have real ids.
	idByRef := make(map[string]string)
	type pendingParent struct {
		questionID string
		parentRef  string
		condition  string
	}
	var pending []pendingParent

	count := 0
	for i, rec := range records[1:] {
		rowNum := i + 2

		weight := 1.0
		if rec[6] != "" {
			weight, err = strconv.ParseFloat(rec[6], 64)
			if err != nil || weight <= 0 {
				return 0, fmt.Errorf("row %d: invalid weight %q", rowNum, rec[6])
			}
		}
		order := i
		if rec[8] != "" {
			order, err = strconv.Atoi(rec[8])
			if err != nil {
				return 0, fmt.Errorf("row %d: invalid order %q", rowNum, rec[8])
			}
		}
		var options []string
		if rec[5] != "" {
			options = strings.Split(rec[5], "|")
		}

		q := model.Question{
			ChecklistID:    checklistID,
			Text:           rec[2],
			ResponseType:   model.NormalizeResponseType(rec[3]),
			IsRequired:     parseBool(rec[4]),
			Options:        options,
			Weight:         weight,
			ConditionValue: rec[7],
			Order:          order,
			SubChecklistID: rec[9],
		}
		id, err := db.InsertQuestion(q)
		if err != nil {
			return 0, fmt.Errorf("row %d: insert question: %w", rowNum, err)
		}
		if rec[0] != "" {
			idByRef[rec[0]] = id
		}
		if rec[1] != "" {
			pending = append(pending, pendingParent{questionID: id, parentRef: rec[1], condition: rec[7]})
		}
		count++
	}

	for _, p := range pending {
		parentID, ok := idByRef[p.parentRef]
		if !ok {
			// A dangling ref degrades to a root question, same as the
			// engine treats dangling parents at runtime.
			slog.Warn("unknown parent_ref, question imported as root", "parent_ref", p.parentRef)
			continue
		}
		if err := db.ReparentQuestion(p.questionID, parentID, p.condition); err != nil {
			return 0, fmt.Errorf("link question to parent %s: %w", p.parentRef, err)
		}
	}

	return count, nil
}

func sha256sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "sim", "y", "s":
		return true
	}
	return false
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAllInspections(context.Background())
	if err != nil {
		return fmt.Errorf("export inspections: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	topic := v.GetString("topic")

	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	ctx := context.Background()
	if err := llmClient.Ping(ctx); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}

	drafts, err := llmClient.GenerateQuestions(ctx, topic, v.GetInt("num-questions"))
	if err != nil {
		return fmt.Errorf("generate questions: %w", err)
	}

	checklistID, err := ensureChecklist(db, v.GetString("checklist"), topic)
	if err != nil {
		return err
	}

	for i, d := range drafts {
		_, err := db.InsertQuestion(model.Question{
			ChecklistID:  checklistID,
			Text:         d.Text,
			ResponseType: model.ResponseType(d.ResponseType),
			IsRequired:   d.IsRequired,
			Options:      d.Options,
			Weight:       d.Weight,
			Order:        i,
		})
		if err != nil {
			return fmt.Errorf("insert generated question: %w", err)
		}
	}

	slog.Info("generated questions", "topic", topic, "checklist", checklistID, "count", len(drafts))
	return nil
}

// ensureChecklist returns the given checklist id after verifying it exists,
// or creates a new checklist with the given title.
func ensureChecklist(db *store.Store, id, title string) (string, error) {
	if id != "" {
		if _, err := db.GetChecklist(id); err != nil {
			return "", fmt.Errorf("checklist %s: %w", id, err)
		}
		return id, nil
	}
	created, err := db.CreateChecklist(model.Checklist{Title: title, IsTemplate: true})
	if err != nil {
		return "", fmt.Errorf("create checklist: %w", err)
	}
	slog.Info("created checklist", "id", created, "title", title)
	return created, nil
}
