package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

const (
	SheetSummary = "Résumé"
	SheetOCR     = "OCR"
	SheetPDF     = "PDF"
	SheetBarcode = "Codes-barres"
	SheetMRZ     = "MRZ"
	SheetOllama  = "Analyse IA"
)

// WriteXLSX writes a summary sheet plus one sheet per present capability.
func WriteXLSX(w io.Writer, results domain.ResultsAggregate) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	rows := [][]any{{"Capacité", "Statut", "Erreur"}}
	for _, c := range results.Capabilities() {
		r, _ := results.Get(c)
		status := "OK"
		if !r.Succeeded() {
			status = "Erreur"
		}
		rows = append(rows, []any{domain.DescribeCapability(c).Name, status, r.Failure()})
	}
	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}

	for _, c := range results.Capabilities() {
		sheet, rows := capabilitySheet(results, c)
		if sheet == "" {
			continue
		}
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeRows(f, sheet, rows); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func capabilitySheet(results domain.ResultsAggregate, c domain.Capability) (string, [][]any) {
	switch c {
	case domain.CapabilityOCR:
		r, _ := results.OCR()
		return SheetOCR, [][]any{
			{"Champ", "Valeur"},
			{"Texte", r.Text},
			{"Confiance", r.Confidence},
			{"Langue", r.Language},
			{"Dimensions", fmt.Sprintf("%dx%d", r.ImageWidth, r.ImageHeight)},
		}
	case domain.CapabilityPDF:
		r, _ := results.PDF()
		rows := [][]any{
			{"Pages", r.PageCount},
			{"Texte", r.Text},
			{"Langue", r.DetectedLanguage},
			{},
			{"Page", "Largeur", "Hauteur", "Rotation", "Caractères", "Texte"},
		}
		for _, p := range r.Pages {
			rows = append(rows, []any{p.PageNumber, p.Width, p.Height, p.Rotation, p.TextLength, p.HasText})
		}
		return SheetPDF, rows
	case domain.CapabilityBarcode:
		r, _ := results.Barcode()
		rows := [][]any{{"#", "Format", "Texte", "Confiance"}}
		for i, b := range r.Barcodes {
			rows = append(rows, []any{i + 1, b.Format, b.Text, b.Confidence})
		}
		return SheetBarcode, rows
	case domain.CapabilityMRZ:
		r, _ := results.MRZ()
		var d domain.MrzData
		if r.Data != nil {
			d = *r.Data
		}
		return SheetMRZ, [][]any{
			{"Champ", "Valeur"},
			{"Type", string(d.DocumentType)},
			{"Pays", d.IssuingCountry},
			{"Nom", d.Surname},
			{"Prénoms", d.GivenNames},
			{"Numéro", d.DocumentNumber},
			{"Nationalité", d.Nationality},
			{"Date de naissance", d.DateOfBirth},
			{"Sexe", d.Gender},
			{"Expiration", d.ExpiryDate},
			{"MRZ", r.MrzText},
		}
	case domain.CapabilityOllama:
		r, _ := results.Ollama()
		rows := [][]any{
			{"Champ", "Valeur"},
			{"Modèle", r.Model},
			{"Prompt", r.Prompt},
			{"Réponse", r.Response},
		}
		if r.Metadata != nil {
			rows = append(rows,
				[]any{"Durée totale", domain.FormatNanos(r.Metadata.TotalDuration)},
				[]any{"Tokens", r.Metadata.EvalCount},
			)
		}
		return SheetOllama, rows
	}
	return "", nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
