// Command evidence is a small operator CLI for the evidence upload pipeline:
// it uploads a file to a deliverable, removes a document, or checks storage
// health, all against a running server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/uploader"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: evidence <upload|remove|health> [flags]")
	}

	server := os.Getenv("EVIDENCE_SERVER")
	if server == "" {
		server = "http://localhost:8090"
	}
	token := os.Getenv("EVIDENCE_TOKEN")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	switch args[0] {
	case "upload":
		return runUpload(ctx, server, token, args[1:])
	case "remove":
		return runRemove(ctx, server, token, args[1:])
	case "health":
		return runHealth(ctx, server, token)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runUpload(ctx context.Context, server, token string, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	deliverable := fs.String("deliverable", "", "deliverable id (required)")
	skill := fs.String("skill", "", "skill id (required)")
	replace := fs.String("replace", "", "evidence id this upload supersedes")
	_ = fs.Parse(args)

	if *deliverable == "" || *skill == "" || fs.NArg() != 1 {
		return fmt.Errorf("usage: evidence upload -deliverable ID -skill ID [-replace ID] FILE")
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	up := uploader.NewUploader(uploader.NewAPIClient(server, token))
	up.OnPhase = func(p uploader.Phase) {
		if p != uploader.PhaseIdle {
			fmt.Fprintf(os.Stderr, "%s...\n", p)
		}
	}
	up.OnProgress = func(sent, total int64) {
		fmt.Fprintf(os.Stderr, "\r  %d/%d bytes", sent, total)
		if sent == total {
			fmt.Fprintln(os.Stderr)
		}
	}

	result, err := up.Upload(ctx, uploader.UploadRequest{
		DeliverableID:     *deliverable,
		SkillID:           *skill,
		FileName:          filepath.Base(path),
		Data:              data,
		ReplaceEvidenceID: *replace,
	})
	if err != nil {
		var upErr *uploader.Error
		if errors.As(err, &upErr) && upErr.Retryable() {
			return fmt.Errorf("%w (safe to retry)", err)
		}
		return err
	}

	fmt.Println("uploaded:", result.Key)
	if result.Warning != "" {
		fmt.Fprintln(os.Stderr, "warning:", result.Warning)
	}
	return nil
}

func runRemove(ctx context.Context, server, token string, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	skill := fs.String("skill", "", "skill id (required)")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	_ = fs.Parse(args)

	if *skill == "" || fs.NArg() != 1 {
		return fmt.Errorf("usage: evidence remove -skill ID [-yes] EVIDENCE_ID")
	}
	evidenceID := fs.Arg(0)

	if !*yes {
		fmt.Printf("remove evidence %s and its stored file? [y/N] ", evidenceID)
		var answer string
		_, _ = fmt.Scanln(&answer)
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fmt.Println("aborted")
			return nil
		}
	}

	up := uploader.NewUploader(uploader.NewAPIClient(server, token))
	warning, err := up.Remove(ctx, evidenceID, *skill)
	if err != nil {
		return err
	}

	fmt.Println("removed:", evidenceID)
	if warning != "" {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}
	return nil
}

func runHealth(ctx context.Context, server, token string) error {
	client := uploader.NewAPIClient(server, token)
	report, err := client.Health(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
