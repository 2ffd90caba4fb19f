package services

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
)

const (
	createdTitle  = "🎉 Nuevo Producto"
	createdBody   = "Se agregó: {{name}}"
	lowStockTitle = "⚠️ Stock Bajo"
	lowStockBody  = "{{name}} tiene solo {{stock}} unidades"
)

// ComposeCreated builds the announcement for a newly created product.
func ComposeCreated(productID string, p models.Product) models.NotificationMessage {
	return models.NotificationMessage{
		Title: createdTitle,
		Body:  RenderTemplate(createdBody, map[string]string{"name": p.Name}),
		Data: map[string]string{
			"type":        models.TypeProductCreated,
			"productId":   productID,
			"productName": p.Name,
		},
	}
}

// ComposeLowStock builds the warning for a product whose stock dropped to newStock.
func ComposeLowStock(productID string, p models.Product, newStock int) models.NotificationMessage {
	stock := strconv.Itoa(newStock)
	return models.NotificationMessage{
		Title: lowStockTitle,
		Body:  RenderTemplate(lowStockBody, map[string]string{"name": p.Name, "stock": stock}),
		Data: map[string]string{
			"type":      models.TypeLowStock,
			"productId": productID,
			"stock":     stock,
		},
	}
}

// ComposeCustom passes caller-supplied content through. Title and body are required.
func ComposeCustom(title, body string, data map[string]string) (models.NotificationMessage, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(body) == "" {
		return models.NotificationMessage{}, status.Error(codes.InvalidArgument, "title and body are required")
	}
	if data == nil {
		data = map[string]string{}
	}
	return models.NotificationMessage{
		Title: title,
		Body:  body,
		Data:  data,
	}, nil
}

func toStringMap(vars map[string]any) map[string]string {
	result := make(map[string]string, len(vars))
	for k, v := range vars {
		result[k] = fmt.Sprint(v)
	}
	return result
}
