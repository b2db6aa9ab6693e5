package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/byteilm/media-backend/internal/caption"
	"github.com/byteilm/media-backend/internal/job"
	"github.com/byteilm/media-backend/internal/transcribe"
)

// Service runs caption translation jobs against generated artifacts.
type Service struct {
	engine      Engine
	captionPath string
}

func NewService(engine Engine, captionPath string) *Service {
	return &Service{engine: engine, captionPath: captionPath}
}

// HandleJob processes a translation job
func (s *Service) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) error {
	started := time.Now()

	var params job.TranslateParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}
	if s.engine == nil {
		return fmt.Errorf("no translation engine configured")
	}
	if params.TargetLang == "" {
		return fmt.Errorf("target language required")
	}

	srcPath := filepath.Join(s.captionPath, transcribe.AssetHash(j.AssetRef), filepath.Base(params.ArtifactID))
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read source artifact: %w", err)
	}

	updateProgress(0.1)

	sourceLang := langFromArtifact(params.ArtifactID)

	var output []byte
	var outName string
	if strings.HasSuffix(params.ArtifactID, ".vtt") {
		// Translate cue texts, keep the timing block untouched.
		lines := caption.ParseVTT(data)
		if len(lines) == 0 {
			return fmt.Errorf("no caption cues found in %s", params.ArtifactID)
		}
		texts := make([]string, len(lines))
		for i, line := range lines {
			texts[i] = line.Text
		}
		translated, err := s.engine.TranslateTexts(ctx, texts, sourceLang, params.TargetLang)
		if err != nil {
			return fmt.Errorf("translate cues: %w", err)
		}
		for i := range lines {
			if i < len(translated) {
				lines[i].Text = translated[i]
			}
		}
		output = caption.ToVTT(lines)
		outName = fmt.Sprintf("translate_%s.vtt", params.TargetLang)
	} else {
		// Plain timestamped transcript: markers must survive byte-identical.
		translated, err := TranslateText(ctx, s.engine, string(data), sourceLang, params.TargetLang)
		if err != nil {
			return err
		}
		output = []byte(translated)
		outName = fmt.Sprintf("translate_%s.txt", params.TargetLang)
	}

	updateProgress(0.9)

	outPath := filepath.Join(s.captionPath, transcribe.AssetHash(j.AssetRef), outName)
	if err := os.WriteFile(outPath, output, 0644); err != nil {
		return fmt.Errorf("save translated artifact: %w", err)
	}

	log.Printf("[translate] translation complete: asset=%s target=%s artifact=%s",
		j.AssetRef, params.TargetLang, outName)

	resultJSON, _ := json.Marshal(job.TranslateResult{
		OutputPath: outName,
		Language:   params.TargetLang,
		Duration:   time.Since(started).Seconds(),
	})
	j.Result = resultJSON

	updateProgress(1.0)
	return nil
}

// langFromArtifact extracts the language code baked into artifact names like
// "stt_en.vtt" or "transcript_ar.txt".
func langFromArtifact(artifactID string) string {
	name := strings.TrimSuffix(filepath.Base(artifactID), filepath.Ext(artifactID))
	if i := strings.LastIndex(name, "_"); i >= 0 {
		code := name[i+1:]
		if len(code) == 2 || len(code) == 3 {
			return code
		}
	}
	return "auto"
}
