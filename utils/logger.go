package utils

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// Logger is the process-wide structured logger.
var Logger = zap.NewNop()

var (
	session   *discordgo.Session
	channelID string
)

// InitZap replaces the process logger. development selects the console encoder.
func InitZap(development bool) error {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	Logger = l
	return nil
}

// InitLogger attaches a Discord session so WARN and ERROR entries are mirrored
// to the admin channel.
func InitLogger(s *discordgo.Session, adminChannelID string) {
	session = s
	channelID = adminChannelID
	if channelID == "" {
		Logger.Warn("bot.adminChannelId is not set, logging to channel is disabled")
	}
}

// Log writes an entry locally and, for WARN and ERROR, to the admin channel.
func Log(level, module, operation, details string) {
	fields := []zap.Field{
		zap.String("module", module),
		zap.String("operation", operation),
	}
	switch level {
	case "WARN":
		Logger.Warn(details, fields...)
	case "ERROR":
		Logger.Error(details, fields...)
	default:
		Logger.Info(details, fields...)
	}

	if session == nil || channelID == "" || level == "INFO" {
		return
	}

	color := ColorWarn
	if level == "ERROR" {
		color = ColorError
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Module", Value: module, Inline: true},
			{Name: "Operation", Value: operation, Inline: true},
			{Name: "Details", Value: truncate(details, 1024)},
		},
	}

	if _, err := session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		Logger.Error("failed to mirror log entry to Discord", zap.Error(err))
	}
}

// Info logs an informational message.
func Info(module, operation, details string) {
	Log("INFO", module, operation, details)
}

// Warn logs a warning message.
func Warn(module, operation, details string) {
	Log("WARN", module, operation, details)
}

// Error logs an error message.
func Error(module, operation, details string) {
	Log("ERROR", module, operation, details)
}

// LogRequest logs a concise summary of an incoming HTTP request.
func LogRequest(r *http.Request, status int, took time.Duration) {
	Logger.Info("incoming_request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
		zap.Int("status", status),
		zap.Duration("took", took),
	)
}

func truncate(s string, n int) string {
	if s == "" {
		return "-"
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
