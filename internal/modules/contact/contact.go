package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/admitlens/core/internal/middleware"
	"github.com/admitlens/core/internal/models"
	"github.com/admitlens/core/internal/pkg/ratelimit"
	"github.com/admitlens/core/internal/pkg/response"
)

const (
	contactLimit  = 20
	contactWindow = 60 * time.Second
)

var validate = validator.New()

// ContactInput is the contact-form payload.
type ContactInput struct {
	Name    string `json:"name"    validate:"omitempty,max=80"`
	Email   string `json:"email"   validate:"required,email"`
	Message string `json:"message" validate:"required,min=10,max=2000"`
}

// Store is the persistence port for contact messages.
type Store interface {
	Insert(ctx context.Context, msg *models.ContactMessage) error
}

// MongoStore writes messages to the contact_messages collection.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(models.ContactMessage{}.CollectionName())}
}

func (s *MongoStore) Insert(ctx context.Context, msg *models.ContactMessage) error {
	if _, err := s.col.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

type Handler struct {
	store   Store
	limiter *ratelimit.Service
}

func NewHandler(store Store, limiter *ratelimit.Service) *Handler {
	return &Handler{store: store, limiter: limiter}
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/contact",
		middleware.RateLimit(h.limiter, ratelimit.Options{Limit: contactLimit, Window: contactWindow}),
		middleware.OptionalAuth(),
		h.create)
}

func (h *Handler) create(c *gin.Context) {
	var in ContactInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, response.BadRequest("Invalid JSON body", nil))
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if err := validate.Struct(&in); err != nil {
		response.Error(c, response.BadRequest("Invalid contact payload", fieldErrors(err)))
		return
	}

	msg := &models.ContactMessage{
		Name:      in.Name,
		Email:     in.Email,
		Message:   in.Message,
		UserID:    optionalString(middleware.CurrentUserID(c)),
		UA:        optionalString(c.GetHeader("User-Agent")),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.Insert(c.Request.Context(), msg); err != nil {
		response.Error(c, response.Internal(err))
		return
	}

	response.OK(c, gin.H{"ok": true})
}

func fieldErrors(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
