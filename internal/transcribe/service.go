package transcribe

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/byteilm/media-backend/internal/caption"
	"github.com/byteilm/media-backend/internal/job"
	"github.com/byteilm/media-backend/internal/media"
)

// Service runs transcription jobs: extract audio, transcribe through the
// selected provider variant, segment into caption lines, and write the
// caption artifacts.
type Service struct {
	client      *Client
	assetPath   string
	captionPath string
	chain       func(assetRef string, params job.TranslateParams)
}

// NewService creates the transcription job service. chain, when non-nil, is
// invoked after a successful job that requested a follow-up translation.
func NewService(client *Client, assetPath, captionPath string, chain func(string, job.TranslateParams)) *Service {
	return &Service{
		client:      client,
		assetPath:   assetPath,
		captionPath: captionPath,
		chain:       chain,
	}
}

// HandleJob processes a transcription job
func (s *Service) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) error {
	started := time.Now()

	var params job.TranscribeParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}

	req := Request{
		StorageURI:   params.StorageURI,
		LanguageHint: params.Language,
		Diarize:      params.Diarize,
	}

	updateProgress(0.05)

	var truncated bool
	if req.StorageURI == "" {
		source := j.AssetRef
		if !media.IsRemote(source) {
			source = filepath.Join(s.assetPath, source)
			if _, err := os.Stat(source); os.IsNotExist(err) {
				return fmt.Errorf("asset not found: %s", j.AssetRef)
			}
		}
		asset, err := media.Extract(ctx, source, media.ExtractOptions{
			MaxDurationSeconds: params.MaxSeconds,
		})
		if err != nil {
			return fmt.Errorf("extract audio: %w", err)
		}
		defer asset.Remove()

		req.AudioPath = asset.Path
		req.MimeType = asset.MimeType
		req.DurationSeconds = asset.DurationSeconds
		truncated = asset.Truncated
	}

	updateProgress(0.2)

	result, err := s.client.Transcribe(ctx, req)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	updateProgress(0.85)

	lines := caption.Segment(result.Words, caption.SegmentOptions{})

	lang := result.Language
	if lang == "" || lang == "auto" {
		lang = "und"
	}

	outDir := filepath.Join(s.captionPath, AssetHash(j.AssetRef))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create caption dir: %w", err)
	}

	vttName := fmt.Sprintf("stt_%s.vtt", lang)
	if err := os.WriteFile(filepath.Join(outDir, vttName), caption.ToVTT(lines), 0644); err != nil {
		return fmt.Errorf("save captions: %w", err)
	}
	txtName := fmt.Sprintf("transcript_%s.txt", lang)
	if err := os.WriteFile(filepath.Join(outDir, txtName), caption.ToPlainTimestamped(lines), 0644); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}

	log.Printf("[stt] transcription complete: asset=%s lang=%s words=%d lines=%d",
		j.AssetRef, lang, len(result.Words), len(lines))

	resultJSON, _ := json.Marshal(job.TranscribeResult{
		VTTPath:        vttName,
		TranscriptPath: txtName,
		Language:       lang,
		WordCount:      len(result.Words),
		Truncated:      truncated,
		Duration:       time.Since(started).Seconds(),
	})
	j.Result = resultJSON

	updateProgress(1.0)

	if params.ChainTranslate != nil && s.chain != nil {
		chained := *params.ChainTranslate
		if chained.ArtifactID == "" {
			chained.ArtifactID = txtName
		}
		s.chain(j.AssetRef, chained)
	}
	return nil
}

// AssetHash names the caption directory for an asset reference.
func AssetHash(assetRef string) string {
	h := sha256.Sum256([]byte(assetRef))
	return fmt.Sprintf("%x", h[:8])
}
