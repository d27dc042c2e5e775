package usecase

import (
	"testing"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

func fileOf(name, mimeType string, size int64) domain.FileRef {
	return domain.NewFileRef(name, size, mimeType, nil)
}

func TestValidateFile(t *testing.T) {
	cfg := ProcessingIntakeConfig()
	tests := []struct {
		name string
		file domain.FileRef
		want string
	}{
		{name: "image", file: fileOf("a.png", "image/png", 1024), want: ""},
		{name: "pdf", file: fileOf("a.pdf", "application/pdf", 1024), want: ""},
		{name: "exact limit", file: fileOf("big.jpg", "image/jpeg", 25*1024*1024), want: ""},
		{
			name: "too large",
			file: fileOf("huge.jpg", "image/jpeg", 25*1024*1024+1),
			want: "Le fichier huge.jpg est trop volumineux. Taille maximale : 25MB",
		},
		{
			name: "unsupported type",
			file: fileOf("notes.txt", "text/plain", 10),
			want: "Le type de fichier text/plain n'est pas supporté",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateFile(cfg, tt.file); got != tt.want {
				t.Fatalf("ValidateFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateFileDefaultProfileAcceptsText(t *testing.T) {
	if msg := ValidateFile(DefaultIntakeConfig(), fileOf("notes.txt", "text/plain", 10)); msg != "" {
		t.Fatalf("ValidateFile() = %q, want accepted", msg)
	}
	if msg := ValidateFile(DefaultIntakeConfig(), fileOf("a.zip", "application/zip", 10)); msg == "" {
		t.Fatalf("expected zip to be rejected")
	}
}

func TestIntakeAddTruncatesAndAccumulates(t *testing.T) {
	in := NewIntake(IntakeConfig{MaxFiles: 2, AcceptedTypes: []string{"image/*"}, MaxFileSizeMB: 1}, nil)

	accepted := in.Add([]domain.FileRef{
		fileOf("a.png", "image/png", 10),
		fileOf("b.pdf", "application/pdf", 10),
		fileOf("c.png", "image/png", 10),
		fileOf("d.png", "image/png", 10),
	})
	if len(accepted) != 2 || accepted[0].File.Name != "a.png" || accepted[1].File.Name != "c.png" {
		t.Fatalf("accepted = %+v", accepted)
	}
	if accepted[0].Kind != domain.KindImage {
		t.Fatalf("kind = %s", accepted[0].Kind)
	}
	errs := in.Errors()
	if len(errs) != 2 {
		t.Fatalf("errors = %v", errs)
	}
	if errs[1] != "Vous ne pouvez sélectionner que 2 fichiers maximum" {
		t.Fatalf("truncation error = %q", errs[1])
	}

	second := in.Add([]domain.FileRef{fileOf("e.png", "image/png", 10)})
	if len(second) != 1 {
		t.Fatalf("second accepted = %+v", second)
	}
	if len(in.Errors()) != 0 {
		t.Fatalf("error list not replaced: %v", in.Errors())
	}
	if len(in.Selected()) != 3 {
		t.Fatalf("selected = %d, want 3", len(in.Selected()))
	}
	progress := in.Progress()
	if len(progress) != 3 || progress["e.png"] != 0 {
		t.Fatalf("progress = %v", progress)
	}
}

func TestIntakeProgressAndRemoval(t *testing.T) {
	in := NewIntake(DefaultIntakeConfig(), nil)
	in.Add([]domain.FileRef{fileOf("a.png", "image/png", 10), fileOf("b.png", "image/png", 10)})

	in.SetProgress("a.png", 150)
	in.SetProgress("missing.png", 50)
	progress := in.Progress()
	if progress["a.png"] != 100 {
		t.Fatalf("progress clamp = %d", progress["a.png"])
	}
	if _, ok := progress["missing.png"]; ok {
		t.Fatalf("unknown file tracked")
	}

	if !in.Remove("a.png") || in.Remove("a.png") {
		t.Fatalf("Remove() should succeed once")
	}
	if len(in.Selected()) != 1 || in.Selected()[0].File.Name != "b.png" {
		t.Fatalf("selected = %+v", in.Selected())
	}

	in.Clear()
	if len(in.Selected()) != 0 || len(in.Progress()) != 0 {
		t.Fatalf("Clear() left state")
	}
}
