package marketapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"

	"github.com/mmeshcher/foodmarket-client/internal/model"
	"github.com/mmeshcher/foodmarket-client/internal/validation"
)

// UploadProductImage загружает локальный файл изображения товара.
func (c *Client) UploadProductImage(ctx context.Context, id model.ID, uri string) error {
	return c.uploadImage(ctx, itemPath("/products/", id)+"upload_image/", uri)
}

// UploadBannerImage загружает локальный файл изображения баннера.
func (c *Client) UploadBannerImage(ctx context.Context, id model.ID, uri string) error {
	return c.uploadImage(ctx, itemPath("/banners/", id)+"upload_image/", uri)
}

// UploadRestaurantImage загружает локальный файл изображения ресторана.
func (c *Client) UploadRestaurantImage(ctx context.Context, id model.ID, uri string) error {
	return c.uploadImage(ctx, itemPath("/restaurants/", id)+"upload_image/", uri)
}

func (c *Client) uploadImage(ctx context.Context, path, uri string) error {
	body, contentType, err := imageForm(uri)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		rawBody:     body,
		contentType: contentType,
	}, nil)
}

// imageForm собирает multipart-тело с единственным полем image.
func imageForm(uri string) ([]byte, string, error) {
	f, err := os.Open(validation.LocalFilePath(uri))
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	filename := validation.ImageFileName(uri)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", validation.ImageContentType(filename))

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
