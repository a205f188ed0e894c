// Command inspect_model prints the schema of a model artifact, audits it
// against an input form and optionally re-exports it as SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"glaucomaml/logger"
	"glaucomaml/ml"
	"glaucomaml/predict"
)

func main() {
	modelPath := flag.String("model", "models/glaucoma_type.json", "model artifact path")
	variantName := flag.String("variant", predict.VariantGlaucomaType, "input form: "+strings.Join(predict.VariantNames(), ", "))
	exportPath := flag.String("export", "", "write the artifact to this SQLite file")
	logLevel := flag.String("log_level", "warn", "log level")
	flag.Parse()

	zlog, err := logger.New(logger.Options{Level: *logLevel, Format: "console", Writer: os.Stderr})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if err := inspect(os.Stdout, *modelPath, *variantName, zlog); err != nil {
		log.Fatalf("inspect failed: %v", err)
	}

	if *exportPath != "" {
		artifact, err := ml.ReadArtifact(*modelPath)
		if err != nil {
			log.Fatalf("failed to read artifact: %v", err)
		}
		if err := ml.SaveSQLite(artifact, *exportPath); err != nil {
			log.Fatalf("failed to export model: %v", err)
		}
		fmt.Printf("model exported to %s\n", *exportPath)
	}
}

// inspect writes a human-readable report of the artifact at path.
func inspect(w io.Writer, path, variantName string, zlog *zap.Logger) error {
	variant, err := predict.LookupVariant(variantName)
	if err != nil {
		return err
	}
	artifact, err := ml.ReadArtifact(path)
	if err != nil {
		return err
	}
	model, err := artifact.Build()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "model:   %s (%s)\n", path, artifact.Type)
	if artifact.Description != "" {
		fmt.Fprintf(w, "         %s\n", artifact.Description)
	}
	if len(model.Labels()) > 0 {
		fmt.Fprintf(w, "labels:  %s\n", strings.Join(model.Labels(), ", "))
	}
	fmt.Fprintf(w, "columns: %d\n", len(model.FeatureNames()))
	for i, c := range model.FeatureNames() {
		fmt.Fprintf(w, "  %2d  %s\n", i, c)
	}

	svc, err := predict.NewService(variant, model, predict.Options{Alignment: predict.AlignmentWarn, Logger: zlog})
	if err != nil {
		return err
	}
	report := svc.Alignment()
	fmt.Fprintf(w, "form:    %s\n", variant.Name)
	if report.Aligned() && len(report.Uncovered) == 0 && len(report.Partial) == 0 {
		fmt.Fprintln(w, "aligned: yes")
	} else {
		fmt.Fprintln(w, "aligned: no")
		printList(w, "unreachable", report.Unreachable)
		printList(w, "dropped", report.Dropped)
		printList(w, "uncovered", report.Uncovered)
		printList(w, "partial", report.Partial)
	}

	res, err := svc.Predict(context.Background(), variant.Layout.Defaults())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "default form -> %s\n", res.Label)
	fmt.Fprintf(w, "                %s\n", res.Interpretation)
	return nil
}

func printList(w io.Writer, name string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", name)
	for _, item := range items {
		fmt.Fprintf(w, "    - %s\n", item)
	}
}
