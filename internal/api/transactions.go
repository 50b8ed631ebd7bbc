package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"finvault/internal/core"
	"finvault/internal/log"
)

// CreateTransaction submits a new income or expense. The fields travel as
// a multipart body with the optional receipt image, and also as query
// parameters unless the client was built with QueryParams disabled.
func (c *Client) CreateTransaction(ctx context.Context, token string, txn core.NewTransaction) (core.Transaction, error) {
	if token == "" {
		return core.Transaction{}, ErrNoToken
	}
	if !txn.Type.Valid() {
		return core.Transaction{}, fmt.Errorf("create transaction: unknown type %q", txn.Type)
	}

	body, contentType, err := c.transactionForm(txn)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	endpoint := c.txURL + "/api/transactions"
	if c.queryParams {
		params := url.Values{}
		params.Set("amount", txn.AmountString())
		params.Set("type", string(txn.Type))
		params.Set("category", txn.Category)
		params.Set("note", txn.Note)
		params.Set("date", txn.Date)
		endpoint += "?" + params.Encode()
	}

	resp, err := c.send(ctx, request{
		method:      http.MethodPost,
		url:         endpoint,
		token:       token,
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	var created core.Transaction
	if len(bytes.TrimSpace(resp)) == 0 {
		return created, nil
	}
	if err := decode(resp, &created, "create transaction"); err != nil {
		return core.Transaction{}, err
	}
	return created, nil
}

func (c *Client) transactionForm(txn core.NewTransaction) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"amount", txn.AmountString()},
		{"category", txn.Category},
		{"note", txn.Note},
		{"date", txn.Date},
	}
	if !c.queryParams {
		// The query string is the only other place the type travels.
		fields = append(fields, [2]string{"type", string(txn.Type)})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	if img := txn.Image; img != nil && len(img.Data) > 0 {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(img.Filename)))
		contentType := img.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", fmt.Errorf("write image part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// ListTransactions fetches every transaction of the user, in backend
// order. Failures are logged before being returned.
func (c *Client) ListTransactions(ctx context.Context, token string) ([]core.Transaction, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	body, err := c.send(ctx, request{
		method: http.MethodGet,
		url:    c.txURL + "/api/transactions",
		token:  token,
	})
	if err == nil {
		var txns []core.Transaction
		if err = decode(body, &txns, "list transactions"); err == nil {
			return txns, nil
		}
	}

	c.logger.ErrorContext(ctx, "Error fetching transaction history",
		log.FieldOperation, log.OpList,
		log.FieldError, err)
	return nil, fmt.Errorf("list transactions: %w", err)
}
