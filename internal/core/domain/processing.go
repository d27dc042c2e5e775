package domain

type Capability string

const (
	CapabilityOCR     Capability = "ocr"
	CapabilityPDF     Capability = "pdf"
	CapabilityBarcode Capability = "barcode"
	CapabilityMRZ     Capability = "mrz"
	CapabilityOllama  Capability = "ollama"
)

// CapabilityOrder is the fixed execution order of a processing run.
var CapabilityOrder = []Capability{
	CapabilityOCR,
	CapabilityPDF,
	CapabilityBarcode,
	CapabilityMRZ,
	CapabilityOllama,
}

func ParseCapability(raw string) (Capability, bool) {
	for _, c := range CapabilityOrder {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

type ProcessingOptions struct {
	EnableOCR      bool   `json:"enableOcr" yaml:"enable_ocr"`
	EnablePDF      bool   `json:"enablePdf" yaml:"enable_pdf"`
	EnableBarcode  bool   `json:"enableBarcode" yaml:"enable_barcode"`
	EnableMRZ      bool   `json:"enableMrz" yaml:"enable_mrz"`
	EnableOllama   bool   `json:"enableOllama" yaml:"enable_ollama"`
	CustomPrompt   string `json:"customPrompt,omitempty" yaml:"custom_prompt"`
	TargetLanguage string `json:"targetLanguage,omitempty" yaml:"target_language"`
}

func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		EnableOCR:     true,
		EnableBarcode: true,
		EnableOllama:  true,
	}
}

func (o ProcessingOptions) Enabled(c Capability) bool {
	switch c {
	case CapabilityOCR:
		return o.EnableOCR
	case CapabilityPDF:
		return o.EnablePDF
	case CapabilityBarcode:
		return o.EnableBarcode
	case CapabilityMRZ:
		return o.EnableMRZ
	case CapabilityOllama:
		return o.EnableOllama
	default:
		return false
	}
}

// Enabled capabilities in execution order.
func (o ProcessingOptions) Capabilities() []Capability {
	out := make([]Capability, 0, len(CapabilityOrder))
	for _, c := range CapabilityOrder {
		if o.Enabled(c) {
			out = append(out, c)
		}
	}
	return out
}

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

type StepDescriptor struct {
	Name        string
	Description string
	Icon        string
}

var stepDescriptors = map[Capability]StepDescriptor{
	CapabilityOCR:     {Name: "Extraction OCR", Description: "Extraction de texte depuis l'image", Icon: "🔍"},
	CapabilityPDF:     {Name: "Extraction PDF", Description: "Extraction de texte et métadonnées du PDF", Icon: "📄"},
	CapabilityBarcode: {Name: "Lecture codes-barres", Description: "Détection et lecture de codes-barres", Icon: "📊"},
	CapabilityMRZ:     {Name: "Extraction MRZ", Description: "Extraction des données d'identité", Icon: "🆔"},
	CapabilityOllama:  {Name: "Analyse IA", Description: "Analyse intelligente avec Ollama", Icon: "🤖"},
}

func DescribeCapability(c Capability) StepDescriptor {
	if d, ok := stepDescriptors[c]; ok {
		return d
	}
	return StepDescriptor{Name: string(c)}
}

type ProcessingStep struct {
	ID          Capability `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Status      StepStatus `json:"status"`
	Result      Result     `json:"-"`
	Error       string     `json:"error,omitempty"`
}

// NewPendingSteps builds one pending step per enabled capability.
func NewPendingSteps(opts ProcessingOptions) []ProcessingStep {
	caps := opts.Capabilities()
	steps := make([]ProcessingStep, 0, len(caps))
	for _, c := range caps {
		d := DescribeCapability(c)
		steps = append(steps, ProcessingStep{
			ID:          c,
			Name:        d.Name,
			Description: d.Description,
			Icon:        d.Icon,
			Status:      StepPending,
		})
	}
	return steps
}

func (s ProcessingStep) Done() bool {
	return s.Status == StepCompleted || s.Status == StepError
}
