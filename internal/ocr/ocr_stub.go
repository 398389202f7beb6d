//go:build !ocr

// Package ocr recognizes text in rendered table crops. This build has no
// OCR support; rebuild with -tags ocr to enable it.
package ocr

import "errors"

// ErrOCRNotEnabled is returned by every call in builds without -tags ocr.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

const Enabled = false

type Client struct{}

func New(lang string) (*Client, error) {
	return nil, ErrOCRNotEnabled
}

func (c *Client) Close() error { return nil }

func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	return "", ErrOCRNotEnabled
}
