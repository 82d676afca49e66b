package chat

import (
	"errors"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jiy4/Brief-Case/internal/auth"
	"github.com/jiy4/Brief-Case/internal/storage"
	"github.com/jiy4/Brief-Case/pkg/database"
	"github.com/jiy4/Brief-Case/pkg/logs"
	"github.com/jiy4/Brief-Case/pkg/models"
	"github.com/jiy4/Brief-Case/pkg/sanitize"
)

type Handler struct {
	db  *gorm.DB
	sb  *storage.Supabase
	hub *Hub
}

func NewHandler(db *gorm.DB, sb *storage.Supabase, hub *Hub) *Handler {
	return &Handler{db: db, sb: sb, hub: hub}
}

/* ========================= Conversation creation ======================== */

type openConversationReq struct {
	OtherUserID string `json:"other_user_id"`
}

// resolvePair decides which side of the pair is the client and which is the
// lawyer. When the two users do not resolve to one of each, the first
// argument is assumed to be the client — observed legacy behavior, kept, but
// logged so misassignments are visible.
func (h *Handler) resolvePair(a, b uuid.UUID) (clientID, lawyerID uuid.UUID, err error) {
	var users []models.User
	if err := h.db.Where("id IN ?", []uuid.UUID{a, b}).Find(&users).Error; err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	roles := map[uuid.UUID]models.Role{}
	for _, u := range users {
		roles[u.ID] = u.Role
	}

	switch {
	case roles[a] == models.RoleClient && roles[b] == models.RoleLawyer:
		return a, b, nil
	case roles[a] == models.RoleLawyer && roles[b] == models.RoleClient:
		return b, a, nil
	default:
		logs.Warnw("ambiguous conversation pair; assuming first user is the client",
			"first", a, "second", b, "first_role", roles[a], "second_role", roles[b])
		return a, b, nil
	}
}

// Open godoc
// @Summary      Find or create a conversation
// @Description  Returns the single conversation for this client/lawyer pair, creating it if missing
// @Tags         chat
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      200  {object}  models.Conversation
// @Router       /conversations [post]
func (h *Handler) Open(c *fiber.Ctx) error {
	me, _ := uuid.Parse(auth.MustUserID(c))

	var in openConversationReq
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	other, err := uuid.Parse(strings.TrimSpace(in.OtherUserID))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid other_user_id")
	}
	if other == me {
		return fiber.NewError(fiber.StatusBadRequest, "cannot open a conversation with yourself")
	}

	clientID, lawyerID, err := h.resolvePair(me, other)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	// Insert-or-ignore against the (client_id, lawyer_id) unique index, then
	// fetch. Two concurrent callers both land on the same row.
	conv := models.Conversation{ClientID: clientID, LawyerID: lawyerID}
	if err := h.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&conv).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if err := h.db.Where("client_id = ? AND lawyer_id = ?", clientID, lawyerID).
		First(&conv).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(conv)
}

/* ========================= Conversation listing ========================= */

type conversationItem struct {
	ID            uuid.UUID    `json:"id"`
	Other         participant  `json:"other"`
	LastMessage   *lastMessage `json:"last_message,omitempty"`
	UnreadCount   int64        `json:"unread_count"`
	LastMessageAt *time.Time   `json:"last_message_at"`
}

type participant struct {
	ID        uuid.UUID   `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	PhotoURL  string      `json:"photo_url"`
	Role      models.Role `json:"role"`
}

type lastMessage struct {
	ID        uuid.UUID `json:"id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Preview   string    `json:"preview"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// List godoc
// @Summary      List my conversations
// @Description  Enriched with the counterpart, last message, and unread count.
//               Three batched queries regardless of conversation count.
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Router       /conversations [get]
func (h *Handler) List(c *fiber.Ctx) error {
	me, _ := uuid.Parse(auth.MustUserID(c))

	ctx, cancel := database.ReadContext(c.Context())
	defer cancel()
	db := h.db.WithContext(ctx)

	var convs []models.Conversation
	if err := db.
		Where("client_id = ? OR lawyer_id = ?", me, me).
		Order("last_message_at DESC NULLS LAST, created_at DESC").
		Find(&convs).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if len(convs) == 0 {
		return c.JSON(fiber.Map{"items": []conversationItem{}})
	}

	convIDs := make([]uuid.UUID, 0, len(convs))
	otherIDs := make([]uuid.UUID, 0, len(convs))
	for _, cv := range convs {
		convIDs = append(convIDs, cv.ID)
		if cv.ClientID == me {
			otherIDs = append(otherIDs, cv.LawyerID)
		} else {
			otherIDs = append(otherIDs, cv.ClientID)
		}
	}

	// 1) counterpart users
	var users []models.User
	if err := db.Where("id IN ?", otherIDs).Find(&users).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	userByID := make(map[uuid.UUID]models.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	// 2) newest message per conversation
	var lastRows []models.Message
	if err := db.Raw(`
		SELECT DISTINCT ON (conversation_id) *
		FROM messages
		WHERE conversation_id IN ?
		ORDER BY conversation_id, created_at DESC`, convIDs).
		Scan(&lastRows).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	lastByConv := make(map[uuid.UUID]models.Message, len(lastRows))
	for _, m := range lastRows {
		lastByConv[m.ConversationID] = m
	}

	// 3) unread counts, excluding my own messages
	type unreadRow struct {
		ConversationID uuid.UUID
		N              int64
	}
	var unread []unreadRow
	if err := db.Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS n").
		Where("conversation_id IN ? AND is_read = false AND sender_id <> ?", convIDs, me).
		Group("conversation_id").
		Scan(&unread).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	unreadByConv := make(map[uuid.UUID]int64, len(unread))
	for _, r := range unread {
		unreadByConv[r.ConversationID] = r.N
	}

	items := make([]conversationItem, 0, len(convs))
	for _, cv := range convs {
		otherID := cv.LawyerID
		if cv.LawyerID == me {
			otherID = cv.ClientID
		}
		u := userByID[otherID]

		item := conversationItem{
			ID: cv.ID,
			Other: participant{
				ID:        u.ID,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				PhotoURL:  u.PhotoURL,
				Role:      u.Role,
			},
			UnreadCount:   unreadByConv[cv.ID],
			LastMessageAt: cv.LastMessageAt,
		}
		if m, ok := lastByConv[cv.ID]; ok {
			preview := m.Body
			if preview == "" && m.AttachmentName != "" {
				preview = "📎 " + m.AttachmentName
			}
			item.LastMessage = &lastMessage{
				ID:        m.ID,
				SenderID:  m.SenderID,
				Preview:   sanitize.Summary(preview, 120),
				IsRead:    m.IsRead,
				CreatedAt: m.CreatedAt,
			}
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"items": items})
}

/* ============================== Messages ================================ */

// loadMember fetches a conversation the caller participates in.
func (h *Handler) loadMember(id string, me uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := h.db.
		Where("id = ? AND (client_id = ? OR lawyer_id = ?)", id, me, me).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Send godoc
// @Summary      Send a message
// @Description  Multipart: "body" text and/or a "file" attachment. The
//               attachment uploads first; a failed upload aborts the send.
// @Tags         chat
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Success      201  {object}  models.Message
// @Router       /conversations/{id}/messages [post]
func (h *Handler) Send(c *fiber.Ctx) error {
	me, _ := uuid.Parse(auth.MustUserID(c))
	convID := c.Params("id")

	conv, err := h.loadMember(convID, me)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	var body string
	var fileHeaderFound bool
	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       me,
		CreatedAt:      time.Now(),
	}

	if strings.HasPrefix(c.Get("Content-Type"), "multipart/form-data") {
		body = strings.TrimSpace(c.FormValue("body"))
		if fh, err := c.FormFile("file"); err == nil && fh != nil {
			fileHeaderFound = true
			if fh.Size <= 0 || fh.Size > 10*1024*1024 {
				return fiber.NewError(fiber.StatusBadRequest, "attachment must be 1 byte to 10MB")
			}
			if h.sb == nil {
				return fiber.NewError(fiber.StatusServiceUnavailable, "storage is not configured")
			}
			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = mime.TypeByExtension(filepath.Ext(fh.Filename))
			}
			f, err := fh.Open()
			if err != nil {
				return fiber.ErrInternalServerError
			}
			defer f.Close()

			key := h.sb.MakeObjectKey("chat", conv.ID.String(), sanitize.FileName(fh.Filename))
			// Upload failure aborts the whole send.
			if err := h.sb.Upload(key, f, ct, fh.Size, false); err != nil {
				return fiber.NewError(fiber.StatusBadGateway, "attachment upload failed")
			}
			msg.AttachmentURL = h.sb.PublicURL(key)
			msg.AttachmentName = fh.Filename
			msg.AttachmentMime = ct
		}
	} else {
		var in struct {
			Body string `json:"body"`
		}
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid json")
		}
		body = strings.TrimSpace(in.Body)
	}

	if body == "" && !fileHeaderFound {
		return fiber.NewError(fiber.StatusBadRequest, "message needs text or an attachment")
	}
	msg.Body = body

	if err := h.db.Create(&msg).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	// Second write: bump the conversation ordering timestamp. Not
	// transactional with the insert; a failure leaves it stale, the message
	// itself is already persisted.
	if err := h.db.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Update("last_message_at", msg.CreatedAt).Error; err != nil {
		logs.Warnw("last_message_at bump failed", "conversation_id", conv.ID, "err", err)
	}

	h.hub.BroadcastToUsers([]uuid.UUID{conv.ClientID, conv.LawyerID}, Event{
		Type: "message:new",
		Data: msg,
	})

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ListMessages godoc
// @Summary      Fetch messages
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Param        limit      query int    false "max rows (default 50)"
// @Param        before_id  query string false "paginate backwards from this message"
// @Router       /conversations/{id}/messages [get]
func (h *Handler) ListMessages(c *fiber.Ctx) error {
	me, _ := uuid.Parse(auth.MustUserID(c))
	convID := c.Params("id")

	conv, err := h.loadMember(convID, me)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if x, err := strconv.Atoi(v); err == nil && x > 0 && x <= 200 {
			limit = x
		}
	}

	q := h.db.Where("conversation_id = ?", conv.ID).Order("created_at DESC").Limit(limit)
	if before := c.Query("before_id"); before != "" {
		var pivot models.Message
		if err := h.db.First(&pivot, "id = ? AND conversation_id = ?", before, conv.ID).Error; err == nil {
			q = q.Where("created_at < ?", pivot.CreatedAt)
		}
	}

	var msgs []models.Message
	if err := q.Find(&msgs).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	// Query runs DESC for the limit; reverse so callers render ascending.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return c.JSON(fiber.Map{"items": msgs})
}

// MarkRead godoc
// @Summary      Mark conversation as read
// @Description  Bulk-flips unread messages not sent by the caller. Idempotent:
//               is_read only ever transitions false→true.
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Router       /conversations/{id}/read [post]
func (h *Handler) MarkRead(c *fiber.Ctx) error {
	me, _ := uuid.Parse(auth.MustUserID(c))
	convID := c.Params("id")

	conv, err := h.loadMember(convID, me)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	res := h.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = false", conv.ID, me).
		Updates(map[string]any{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return fiber.ErrInternalServerError
	}

	if res.RowsAffected > 0 {
		h.hub.BroadcastToUsers([]uuid.UUID{conv.ClientID, conv.LawyerID}, Event{
			Type: "message:read",
			Data: fiber.Map{"conversation_id": conv.ID, "reader_id": me},
		})
	}
	return c.JSON(fiber.Map{"ok": true, "updated": res.RowsAffected})
}

// DeleteMessage godoc
// @Summary      Delete a message (sender only)
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Router       /messages/{id} [delete]
func (h *Handler) DeleteMessage(c *fiber.Ctx) error {
	me, _ := uuid.Parse(auth.MustUserID(c))
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid message id")
	}

	var msg models.Message
	if err := h.db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if msg.SenderID != me {
		return fiber.ErrForbidden
	}

	if msg.AttachmentURL != "" && h.sb != nil {
		if key := h.sb.KeyFromPublicURL(msg.AttachmentURL); key != "" {
			if err := h.sb.Delete(key); err != nil {
				logs.Warnw("attachment delete failed", "message_id", msg.ID, "key", key, "err", err)
			}
		}
	}

	if err := h.db.Delete(&models.Message{}, "id = ?", msg.ID).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}

/* ============================== Websocket =============================== */

// UpgradeGate authenticates the ?token= query parameter and approves the
// websocket upgrade.
func UpgradeGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		userID, role, err := auth.ParseSessionToken(c.Query("token"))
		if err != nil {
			return fiber.ErrUnauthorized
		}
		c.Locals("userID", userID)
		c.Locals("role", role)
		return c.Next()
	}
}

// ServeWS registers the connection with the hub and blocks on the read loop
// until the peer goes away. The subscription is released on any exit path.
func (h *Handler) ServeWS() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, err := uuid.Parse(conn.Locals("userID").(string))
		if err != nil {
			_ = conn.Close()
			return
		}

		client := h.hub.AddClient(userID, conn)
		defer h.hub.RemoveClient(client)

		for {
			// Inbound frames are ignored (server-push channel); reading still
			// drives ping/pong and disconnect detection.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
