package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

const textHeader = "Résultats du traitement de document\n=====================================\n\n"

// WriteText lists the key fields of each present capability.
func WriteText(w io.Writer, results domain.ResultsAggregate) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(textHeader)

	if r, ok := results.OCR(); ok {
		fmt.Fprintf(bw, "OCR:\n- Texte extrait: %s\n- Confiance: %d%%\n\n", r.Text, int(math.Round(r.Confidence*100)))
	}
	if r, ok := results.PDF(); ok {
		fmt.Fprintf(bw, "PDF:\n- Pages: %d\n- Texte: %s\n\n", r.PageCount, r.Text)
	}
	if r, ok := results.Barcode(); ok {
		bw.WriteString("Codes-barres:\n")
		for i, b := range r.Barcodes {
			fmt.Fprintf(bw, "- %d: %s - %s\n", i+1, b.Format, b.Text)
		}
		bw.WriteString("\n")
	}
	if r, ok := results.MRZ(); ok {
		var d domain.MrzData
		if r.Data != nil {
			d = *r.Data
		}
		fmt.Fprintf(bw, "MRZ:\n- Type: %s\n- Nom: %s %s\n- Pays: %s\n\n", d.DocumentType, d.Surname, d.GivenNames, d.IssuingCountry)
	}
	if r, ok := results.Ollama(); ok {
		fmt.Fprintf(bw, "Analyse IA:\n- Réponse: %s\n\n", r.Response)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write text export: %w", err)
	}
	return nil
}
