// Package handler holds the HTTP surface. Shared collaborators are
// initialized once from main, mirroring how the stores and clients are
// wired behind package-level accessors elsewhere.
package handler

import (
	"strconv"

	"support-chat-service/internal/access"
	"support-chat-service/internal/chat"
	"support-chat-service/internal/docproc"
	"support-chat-service/internal/workflow"
	"support-chat-service/pkg/config"
	"support-chat-service/pkg/mailer"
	"support-chat-service/pkg/storage"
)

var (
	cfg            *config.Config
	resolver       *access.Resolver
	docController  *docproc.Controller
	workflowClient *workflow.Client
	fallbackPolicy *chat.FallbackPolicy
	storageService *storage.Service
	mailService    *mailer.Mailer
)

// Init wires the handler package's collaborators.
func Init(
	c *config.Config,
	r *access.Resolver,
	dc *docproc.Controller,
	wc *workflow.Client,
	fp *chat.FallbackPolicy,
	ss *storage.Service,
	ms *mailer.Mailer,
) {
	cfg = c
	resolver = r
	docController = dc
	workflowClient = wc
	fallbackPolicy = fp
	storageService = ss
	mailService = ms
}

func parseUintParam(raw string) (uint, error) {
	parsed, err := strconv.ParseUint(raw, 10, 32)
	return uint(parsed), err
}
