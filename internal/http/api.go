package http

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cartease/internal/domain"
	"cartease/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	cart   service.CartService
	auth   service.AuthService
	logger *logrus.Logger
}

func NewHandler(cart service.CartService, auth service.AuthService, logger *logrus.Logger) *Handler {
	return &Handler{
		cart:   cart,
		auth:   auth,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		cart := api.Group("/cart", h.authRequired())
		{
			cart.GET("/items", h.listItems)
			cart.POST("/items", h.createItem)
			cart.GET("/items/:id", h.getItem)
			cart.PUT("/items/:id", h.updateItem)
			cart.DELETE("/items/:id", h.deleteItem)
			cart.POST("/items/:id/images", h.attachImage)
			cart.GET("/items/:id/images/:imageId", h.downloadImage)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type cartItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func (r cartItemRequest) toInput() service.CartItemInput {
	return service.CartItemInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Quantity:    r.Quantity,
	}
}

// apiResponse is the wire shape of the service envelope.
type apiResponse struct {
	IsSuccessful bool     `json:"is_successful"`
	Data         any      `json:"data,omitempty"`
	ErrorCode    string   `json:"error_code,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

func (h *Handler) listItems(c *gin.Context) {
	resp := h.cart.GetItems(c.Request.Context(), callerIdentity(c))
	c.JSON(envelope(resp, itemsToResponse))
}

func (h *Handler) getItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	resp := h.cart.GetItemDetails(c.Request.Context(), callerIdentity(c), id)
	c.JSON(envelope(resp, itemToResponse))
}

func (h *Handler) createItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidArgument(err.Error()))
		return
	}

	resp := h.cart.AddItem(c.Request.Context(), callerIdentity(c), req.toInput())
	status, body := envelope(resp, itemToResponse)
	if resp.IsSuccessful {
		status = http.StatusCreated
	}
	c.JSON(status, body)
}

func (h *Handler) updateItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidArgument(err.Error()))
		return
	}

	resp := h.cart.UpdateItem(c.Request.Context(), callerIdentity(c), id, req.toInput())
	c.JSON(envelope(resp, itemToResponse))
}

func (h *Handler) deleteItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	resp := h.cart.RemoveItem(c.Request.Context(), callerIdentity(c), id)
	c.JSON(envelope(resp, func(deleted bool) any {
		return gin.H{"deleted": deleted}
	}))
}

func (h *Handler) attachImage(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, invalidArgument("image file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, invalidArgument(fmt.Sprintf("open upload: %v", err)))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, invalidArgument(fmt.Sprintf("read upload: %v", err)))
		return
	}

	image := domain.ItemImage{
		FileName:           filepath.Base(fileHeader.Filename),
		FileBytes:          data,
		ContentType:        fileHeader.Header.Get("Content-Type"),
		ContentDisposition: fileHeader.Header.Get("Content-Disposition"),
		Length:             fileHeader.Size,
		Name:               c.PostForm("name"),
	}

	resp := h.cart.AddImage(c.Request.Context(), callerIdentity(c), id, image)
	status, body := envelope(resp, itemToResponse)
	if resp.IsSuccessful {
		status = http.StatusCreated
	}
	c.JSON(status, body)
}

func (h *Handler) downloadImage(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	imageID, err := strconv.ParseInt(c.Param("imageId"), 10, 64)
	if err != nil || imageID <= 0 {
		c.JSON(http.StatusBadRequest, invalidArgument("invalid image id"))
		return
	}

	resp := h.cart.GetImage(c.Request.Context(), callerIdentity(c), id, imageID)
	if !resp.IsSuccessful {
		c.JSON(statusForCode(resp.Code), apiResponse{
			IsSuccessful: false,
			ErrorCode:    string(resp.Code),
			Errors:       resp.Errors,
		})
		return
	}

	img := resp.Data
	if img.ContentDisposition != "" {
		c.Header("Content-Disposition", img.ContentDisposition)
	} else {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.FileName))
	}
	c.Data(http.StatusOK, img.ContentType, img.FileBytes)
}

func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, invalidArgument("invalid cart item id"))
		return 0, false
	}
	return id, true
}

func invalidArgument(msg string) apiResponse {
	return apiResponse{
		IsSuccessful: false,
		ErrorCode:    string(service.CodeInvalidArgument),
		Errors:       []string{msg},
	}
}

func envelope[T any](resp service.Response[T], mapData func(T) any) (int, apiResponse) {
	if resp.IsSuccessful {
		return http.StatusOK, apiResponse{IsSuccessful: true, Data: mapData(resp.Data)}
	}
	return statusForCode(resp.Code), apiResponse{
		IsSuccessful: false,
		ErrorCode:    string(resp.Code),
		Errors:       resp.Errors,
	}
}

func statusForCode(code service.ErrorCode) int {
	switch code {
	case service.CodeInvalidArgument, service.CodeValidationFailed:
		return http.StatusBadRequest
	case service.CodeUserNotFound, service.CodeItemNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type CartItemResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       string              `json:"price"`
	Quantity    int                 `json:"quantity"`
	Images      []ItemImageResponse `json:"images"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

type ItemImageResponse struct {
	ID          int64  `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Length      int64  `json:"length"`
	Name        string `json:"name,omitempty"`
	S3Location  string `json:"s3_location,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func itemToResponse(item domain.CartItem) any {
	resp := CartItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price.String(),
		Quantity:    item.Quantity,
		Images:      make([]ItemImageResponse, len(item.Images)),
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.Format(time.RFC3339),
	}
	for i := range item.Images {
		img := item.Images[i]
		resp.Images[i] = ItemImageResponse{
			ID:          img.ID,
			FileName:    img.FileName,
			ContentType: img.ContentType,
			Length:      img.Length,
			Name:        img.Name,
			S3Location:  img.S3Location,
			CreatedAt:   img.CreatedAt.Format(time.RFC3339),
		}
	}
	return resp
}

func itemsToResponse(items []domain.CartItem) any {
	resp := make([]any, len(items))
	for i := range items {
		resp[i] = itemToResponse(items[i])
	}
	return resp
}
