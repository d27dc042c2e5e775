package usecase

import (
	"strings"
	"sync"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/ports"
)

const bytesPerMB = 1024 * 1024

type IntakeConfig struct {
	MaxFiles      int
	AcceptedTypes []string
	MaxFileSizeMB int
}

func DefaultIntakeConfig() IntakeConfig {
	return IntakeConfig{
		MaxFiles:      5,
		AcceptedTypes: []string{"image/*", "application/pdf", "text/*"},
		MaxFileSizeMB: 10,
	}
}

// ProcessingIntakeConfig is the single-file profile used before a run.
func ProcessingIntakeConfig() IntakeConfig {
	return IntakeConfig{
		MaxFiles:      1,
		AcceptedTypes: []string{"image/*", "application/pdf"},
		MaxFileSizeMB: 25,
	}
}

// ValidateFile returns an empty string when file is acceptable under cfg,
// otherwise the French rejection message.
func ValidateFile(cfg IntakeConfig, file domain.FileRef) string {
	return validateFile(cfg, file, messagesOr(nil))
}

func validateFile(cfg IntakeConfig, file domain.FileRef, t ports.Translator) string {
	if cfg.MaxFileSizeMB > 0 && file.Size > int64(cfg.MaxFileSizeMB)*bytesPerMB {
		return t.Translate("intake.file_too_large", file.Name, cfg.MaxFileSizeMB)
	}
	if !typeAccepted(cfg.AcceptedTypes, file.MimeType) {
		return t.Translate("intake.type_unsupported", file.MimeType)
	}
	return ""
}

func typeAccepted(patterns []string, mimeType string) bool {
	for _, p := range patterns {
		if p == mimeType {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "*"); ok && strings.HasSuffix(prefix, "/") && strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

// Intake accumulates validated upload candidates and their progress.
type Intake struct {
	cfg      IntakeConfig
	messages ports.Translator

	mu       sync.Mutex
	selected []domain.UploadCandidate
	errors   []string
	progress map[string]int
}

func NewIntake(cfg IntakeConfig, messages ports.Translator) *Intake {
	return &Intake{
		cfg:      cfg,
		messages: messagesOr(messages),
		progress: make(map[string]int),
	}
}

// Add validates files, keeps at most MaxFiles of this call's accepted ones
// and returns them. The error list is replaced by this call's errors.
func (in *Intake) Add(files []domain.FileRef) []domain.UploadCandidate {
	var (
		accepted []domain.UploadCandidate
		errs     []string
	)
	for _, f := range files {
		if msg := validateFile(in.cfg, f, in.messages); msg != "" {
			errs = append(errs, msg)
			continue
		}
		accepted = append(accepted, domain.NewUploadCandidate(f))
	}
	if in.cfg.MaxFiles > 0 && len(accepted) > in.cfg.MaxFiles {
		errs = append(errs, in.messages.Translate("intake.too_many_files", in.cfg.MaxFiles))
		accepted = accepted[:in.cfg.MaxFiles]
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.errors = errs
	in.selected = append(in.selected, accepted...)
	for _, c := range accepted {
		in.progress[c.File.Name] = 0
	}
	return accepted
}

func (in *Intake) Remove(name string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i, c := range in.selected {
		if c.File.Name == name {
			in.selected = append(in.selected[:i:i], in.selected[i+1:]...)
			delete(in.progress, name)
			return true
		}
	}
	return false
}

func (in *Intake) Clear() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.selected = nil
	in.errors = nil
	in.progress = make(map[string]int)
}

func (in *Intake) Selected() []domain.UploadCandidate {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]domain.UploadCandidate(nil), in.selected...)
}

func (in *Intake) Errors() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.errors...)
}

func (in *Intake) Progress() map[string]int {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make(map[string]int, len(in.progress))
	for k, v := range in.progress {
		out[k] = v
	}
	return out
}

// SetProgress clamps percent to [0, 100]; unknown names are ignored.
func (in *Intake) SetProgress(name string, percent int) {
	percent = max(0, min(percent, 100))
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, ok := in.progress[name]; ok {
		in.progress[name] = percent
	}
}
