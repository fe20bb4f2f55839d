package auctionapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// COSE is a raw CBOR-encoded COSE_Sign1 message: a settlement receipt or a Nitro attestation document.
type COSE []byte

// COSEBase64 is COSE in standard base64, the form carried in JSON responses.
type COSEBase64 string

// COSEURLBase64 is COSE in unpadded URL-safe base64.
type COSEURLBase64 string

// COSEGzip is gzip-compressed COSE in unpadded URL-safe base64, short enough for query strings.
type COSEGzip string

func (c COSE) EncodeBase64() COSEBase64 {
	return COSEBase64(base64.StdEncoding.EncodeToString(c))
}

func (c COSE) EncodeURLSafe() COSEURLBase64 {
	return COSEURLBase64(base64.RawURLEncoding.EncodeToString(c))
}

// CompressGzip compresses the message. Output is deterministic for a given input.
func (c COSE) CompressGzip() (COSEGzip, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("create gzip writer: %w", err)
	}
	if _, err := zw.Write(c); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}
	return COSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

func (b COSEBase64) String() string {
	return string(b)
}

func (b COSEBase64) Decode() (COSE, error) {
	data, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return COSE(data), nil
}

// CompressGzip decodes and recompresses in one step.
func (b COSEBase64) CompressGzip() (COSEGzip, error) {
	c, err := b.Decode()
	if err != nil {
		return "", err
	}
	return c.CompressGzip()
}

func (u COSEURLBase64) String() string {
	return string(u)
}

// Decode accepts input with or without padding.
func (u COSEURLBase64) Decode() (COSE, error) {
	s := strings.TrimRight(string(u), "=")
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64url: %w", err)
	}
	return COSE(data), nil
}

func (g COSEGzip) String() string {
	return string(g)
}

func (g COSEGzip) Decompress() (COSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(g))
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read gzip stream: %w", err)
	}
	return COSE(data), nil
}
