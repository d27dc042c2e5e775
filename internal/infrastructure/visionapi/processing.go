package visionapi

import (
	"context"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

func (c *Client) ExtractText(ctx context.Context, file domain.FileRef, language string) (*domain.OcrResult, error) {
	var out domain.OcrResult
	if err := c.call(ctx, endpointOCR, nil, multipartBody(file, map[string]string{"language": language}), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ProcessPDF(ctx context.Context, file domain.FileRef) (*domain.PdfResult, error) {
	var out domain.PdfResult
	if err := c.call(ctx, endpointPDF, nil, multipartBody(file, nil), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ReadBarcodes(ctx context.Context, file domain.FileRef) (*domain.BarcodeResult, error) {
	var out domain.BarcodeResult
	if err := c.call(ctx, endpointBarcode, nil, multipartBody(file, nil), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExtractMRZ(ctx context.Context, file domain.FileRef) (*domain.MrzResult, error) {
	var out domain.MrzResult
	if err := c.call(ctx, endpointMRZ, nil, multipartBody(file, nil), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze sends prompt only when it is non-empty.
func (c *Client) Analyze(ctx context.Context, file domain.FileRef, prompt string) (*domain.OllamaResult, error) {
	var out domain.OllamaResult
	if err := c.call(ctx, endpointAnalyze, nil, multipartBody(file, map[string]string{"prompt": prompt}), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestUpload posts to the diagnostic endpoint without credentials.
func (c *Client) TestUpload(ctx context.Context, file domain.FileRef) (domain.UploadReceipt, error) {
	var out domain.UploadReceipt
	if err := c.call(ctx, endpointTestUpload, nil, multipartBody(file, nil), &out); err != nil {
		return domain.UploadReceipt{}, err
	}
	return out, nil
}
