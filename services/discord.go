package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
	"k8s.io/klog/v2"

	"assistant/models"
)

const (
	// DefaultDiscordChatPrefix starts a chat command
	DefaultDiscordChatPrefix = "!chat "
	// DiscordSearchPrefix starts a search command
	DiscordSearchPrefix = "!search "

	// MsgDiscordThrottled is sent when a Discord user exceeds the rate limit
	MsgDiscordThrottled = "Hold up! You're sending messages too fast. Take a breather! 😅"

	discordMessageLimit = 2000
	discordChunkSize    = 1900
	maxAttachmentBytes  = 10 << 20
)

// DiscordService exposes the chat and search pipelines as bot commands
type DiscordService struct {
	session       *discordgo.Session
	generator     Generator
	searcher      Searcher
	limiter       *RateLimiter
	httpClient    *http.Client
	commandPrefix string
	enabled       bool
	startTime     time.Time
	sendPacer     *rate.Limiter

	mu       sync.Mutex
	startErr error
}

// messageSender is the part of a discordgo session used to answer commands
type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

// NewDiscordService creates the bot. It stays disabled when token is empty.
func NewDiscordService(token, commandPrefix string, generator Generator, searcher Searcher, limiter *RateLimiter) *DiscordService {
	if commandPrefix == "" {
		commandPrefix = DefaultDiscordChatPrefix
	}

	service := &DiscordService{
		generator:     generator,
		searcher:      searcher,
		limiter:       limiter,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		commandPrefix: commandPrefix,
		startTime:     time.Now(),
		sendPacer:     rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}

	if token == "" {
		klog.Infof("Discord bot disabled: DISCORD_BOT_TOKEN not set")
		return service
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		klog.Errorf("Error creating Discord session: %v", err)
		return service
	}
	service.session = session

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		klog.Infof("Bot is online as %s in %d servers", event.User.Username, len(event.Guilds))
	})
	session.AddHandler(service.messageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	service.enabled = true
	klog.Infof("Discord service initialized with prefix %q", commandPrefix)
	return service
}

// Start opens the gateway connection
func (d *DiscordService) Start() error {
	if !d.enabled {
		return fmt.Errorf("discord service not enabled (missing bot token)")
	}
	if err := d.session.Open(); err != nil {
		err = fmt.Errorf("error opening Discord connection: %w", err)
		d.mu.Lock()
		d.startErr = err
		d.mu.Unlock()
		return err
	}
	klog.Infof("Discord bot started, use '%s<message>' or '%s<query>'", d.commandPrefix, DiscordSearchPrefix)
	return nil
}

// Stop closes the gateway connection
func (d *DiscordService) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// IsEnabled returns whether the Discord service is enabled
func (d *DiscordService) IsEnabled() bool {
	return d.enabled
}

// messageCreate handles incoming Discord messages
func (d *DiscordService) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	d.handleMessage(s, m.Message)
}

// handleMessage answers one chat or search command through sender
func (d *DiscordService) handleMessage(s messageSender, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}

	command, text := d.parseCommand(m.Content)
	if command == "" {
		return
	}

	ctx := WithClientKey(context.Background(), "discord:"+m.Author.ID)
	if d.limiter != nil && !d.limiter.Allow(ClientKeyFromContext(ctx), time.Now()) {
		d.sendMessage(ctx, s, m.ChannelID, MsgDiscordThrottled)
		return
	}

	if err := s.ChannelTyping(m.ChannelID); err != nil {
		klog.V(2).Infof("Typing indicator failed: %v", err)
	}

	var reply string
	switch command {
	case "search":
		if text == "" {
			reply = fmt.Sprintf("Please provide a query after `%s`", strings.TrimSpace(DiscordSearchPrefix))
			break
		}
		reply = strings.Join(d.searcher.Search(ctx, text), "\n")
	case "chat":
		file := d.imageAttachment(ctx, m.Attachments)
		if text == "" && file == nil {
			reply = fmt.Sprintf("Please provide a message after `%s`", strings.TrimSpace(d.commandPrefix))
			break
		}
		reply = d.generator.Generate(ctx, text, file)
	}

	d.sendMessage(ctx, s, m.ChannelID, reply)
	klog.Infof("Discord %s: user %s (%s) in channel %s", command, m.Author.Username, m.Author.ID, m.ChannelID)
}

// parseCommand returns "chat" or "search" and the text after the prefix
func (d *DiscordService) parseCommand(content string) (string, string) {
	switch {
	case strings.HasPrefix(content, DiscordSearchPrefix):
		return "search", strings.TrimSpace(content[len(DiscordSearchPrefix):])
	case strings.HasPrefix(content, d.commandPrefix):
		return "chat", strings.TrimSpace(content[len(d.commandPrefix):])
	case strings.TrimSpace(content) == strings.TrimSpace(d.commandPrefix):
		return "chat", ""
	}
	return "", ""
}

// imageAttachment downloads the first image attachment as a FileAttachment
func (d *DiscordService) imageAttachment(ctx context.Context, attachments []*discordgo.MessageAttachment) *models.FileAttachment {
	for _, a := range attachments {
		if !strings.HasPrefix(a.ContentType, "image/") {
			continue
		}
		if a.Size > maxAttachmentBytes {
			klog.Warningf("Skipping %d byte attachment %s", a.Size, a.Filename)
			continue
		}
		data, err := d.download(ctx, a.URL)
		if err != nil {
			klog.Errorf("Failed to download attachment %s: %v", a.Filename, err)
			continue
		}
		return &models.FileAttachment{
			MimeType: a.ContentType,
			Data:     base64.StdEncoding.EncodeToString(data),
		}
	}
	return nil
}

func (d *DiscordService) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes))
}

// sendMessage sends a message to Discord, splitting it to fit the length limit
func (d *DiscordService) sendMessage(ctx context.Context, s messageSender, channelID, message string) {
	if len(message) <= discordMessageLimit {
		if _, err := s.ChannelMessageSend(channelID, message); err != nil {
			klog.Errorf("Error sending Discord message: %v", err)
		}
		return
	}

	chunks := SplitMessage(message, discordChunkSize)
	for i, chunk := range chunks {
		if i > 0 {
			chunk = "...continued:\n" + chunk
		}
		if i < len(chunks)-1 {
			chunk = chunk + "\n..."
		}

		if err := d.sendPacer.Wait(ctx); err != nil {
			return
		}
		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			klog.Errorf("Error sending Discord message chunk: %v", err)
		}
	}
}

// SplitMessage splits message into chunks of at most maxLength bytes,
// preferring word boundaries and never cutting a UTF-8 sequence.
func SplitMessage(message string, maxLength int) []string {
	if len(message) <= maxLength {
		return []string{message}
	}

	var chunks []string
	for len(message) > maxLength {
		splitIndex := maxLength
		for splitIndex > 0 && !isRuneStart(message[splitIndex]) {
			splitIndex--
		}
		if spaceIndex := strings.LastIndex(message[:splitIndex], " "); spaceIndex > maxLength/2 {
			splitIndex = spaceIndex
		}
		if splitIndex == 0 {
			splitIndex = maxLength
		}

		chunks = append(chunks, message[:splitIndex])
		message = strings.TrimPrefix(message[splitIndex:], " ")
	}

	if len(message) > 0 {
		chunks = append(chunks, message)
	}
	return chunks
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// GetStatus returns the current status of the Discord service
func (d *DiscordService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"enabled":        d.enabled,
		"command_prefix": d.commandPrefix,
		"search_prefix":  DiscordSearchPrefix,
		"uptime":         time.Since(d.startTime).String(),
	}

	d.mu.Lock()
	startErr := d.startErr
	d.mu.Unlock()

	switch {
	case startErr != nil:
		status["status"] = "error"
		status["error"] = startErr.Error()
	case d.enabled && d.session != nil && d.session.State != nil && d.session.State.User != nil:
		status["status"] = "connected"
		status["user"] = map[string]interface{}{
			"id":       d.session.State.User.ID,
			"username": d.session.State.User.Username,
		}
		status["guilds"] = len(d.session.State.Guilds)
	case d.enabled:
		status["status"] = "initialized_not_started"
	default:
		status["status"] = "disabled"
	}
	return status
}
