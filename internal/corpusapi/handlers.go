package corpusapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fuzzamoto/ir-engine/internal/compiler"
	"github.com/fuzzamoto/ir-engine/internal/corpus"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/codec"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

type Handler struct {
	store *corpus.Store
	hub   *Hub
}

// handleHealth reports whether the corpus store is reachable.
func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "operational",
		"service":     "ir-engine corpus API",
		"dbConnected": h.store != nil,
	})
}

// handleListPrograms returns a page of saved corpus entries.
func (h *Handler) handleListPrograms(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "corpus store not connected"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, total, err := h.store.ListPrograms(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list programs", "details": err.Error()})
		return
	}

	type summary struct {
		ID               string `json:"id"`
		ContextNodes     int    `json:"contextNodes"`
		ContextConns     int    `json:"contextConnections"`
		InstructionCount int    `json:"instructionCount"`
		CompiledSize     int    `json:"compiledSize"`
		LastMutation     string `json:"lastMutation"`
	}
	out := make([]summary, 0, len(records))
	for _, r := range records {
		out = append(out, summary{
			ID:               r.ID.String(),
			ContextNodes:     r.ContextNodes,
			ContextConns:     r.ContextConns,
			InstructionCount: r.InstructionCount,
			CompiledSize:     r.CompiledSize,
			LastMutation:     r.LastMutation,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       out,
		"totalCount": total,
		"page":       page,
		"limit":      limit,
	})
}

// handleGetProgram returns a single program's JSON form plus its stored
// metadata.
func (h *Handler) handleGetProgram(c *gin.Context) {
	rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	p, err := codec.DecodeBinary(rec.Program)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored program failed to decode", "details": err.Error()})
		return
	}
	progJSON, err := codec.EncodeJSON(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render program", "details": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", progJSON)
}

// handleGetProgramText returns a program's textual SSA-style form
// (ir.Program.String()).
func (h *Handler) handleGetProgramText(c *gin.Context) {
	rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	p, err := codec.DecodeBinary(rec.Program)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored program failed to decode", "details": err.Error()})
		return
	}
	c.String(http.StatusOK, p.String())
}

// handleAddProgram validates a posted program (its JSON form) against the
// builder's contract, stores it, and broadcasts a notification.
func (h *Handler) handleAddProgram(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "corpus store not connected"})
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	p, err := codec.DecodeJSON(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid program JSON", "details": err.Error()})
		return
	}
	if _, err := builder.FromProgram(p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "program failed validation", "details": err.Error()})
		return
	}

	compiledSize := 0
	if compiled, err := compiler.Compile(p, &metadata.PerTestcaseMetadata{}); err == nil {
		for _, a := range compiled.Actions {
			compiledSize += len(a.Payload)
		}
	}

	rec := corpus.ProgramRecord{
		ID:               uuid.New(),
		ContextNodes:     p.Context.Nodes,
		ContextConns:     p.Context.Connections,
		ContextTimestamp: p.Context.Timestamp,
		InstructionCount: len(p.Instructions),
		CompiledSize:     compiledSize,
		LastMutation:     c.DefaultQuery("mutation", "seed"),
		Program:          codec.EncodeBinary(p),
	}
	if err := h.store.SaveProgram(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save program", "details": err.Error()})
		return
	}

	h.notify(gin.H{"type": "program_added", "id": rec.ID.String(), "instructionCount": rec.InstructionCount})
	c.JSON(http.StatusCreated, gin.H{"id": rec.ID.String()})
}

// handleCompilePreview decodes a stored program and runs it through the
// compiler, returning the resulting action sequence without ever sending it
// over the wire — a preview of what a fuzzing run would do with this entry.
func (h *Handler) handleCompilePreview(c *gin.Context) {
	rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	p, err := codec.DecodeBinary(rec.Program)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored program failed to decode", "details": err.Error()})
		return
	}
	compiled, err := compiler.Compile(p, &metadata.PerTestcaseMetadata{})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "compilation failed", "details": err.Error()})
		return
	}

	type action struct {
		Kind       compiler.ActionKind `json:"kind"`
		Connection int                  `json:"connection,omitempty"`
		Network    string               `json:"network,omitempty"`
		Command    string               `json:"command,omitempty"`
		PayloadLen int                  `json:"payloadLen,omitempty"`
		Seconds    int64                `json:"seconds,omitempty"`
	}
	out := make([]action, 0, len(compiled.Actions))
	for _, a := range compiled.Actions {
		out = append(out, action{
			Kind: a.Kind, Connection: a.Connection, Network: a.Network,
			Command: a.Command, PayloadLen: len(a.Payload), Seconds: a.Seconds,
		})
	}

	h.notify(gin.H{"type": "compile_preview", "id": rec.ID.String(), "actionCount": len(out)})
	c.JSON(http.StatusOK, gin.H{"id": rec.ID.String(), "actions": out})
}

func (h *Handler) loadRecord(c *gin.Context) (*corpus.ProgramRecord, bool) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "corpus store not connected"})
		return nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid program id"})
		return nil, false
	}
	rec, err := h.store.GetProgram(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found", "details": err.Error()})
		return nil, false
	}
	return rec, true
}

func (h *Handler) notify(payload gin.H) {
	if h.hub == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("corpusapi: failed to marshal notification: %v", err)
		return
	}
	h.hub.Broadcast(b)
}
