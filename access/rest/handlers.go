// handlers.go: HTTP handlers for tree access and lifecycle operations
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package rest

import (
	"net/http"
	"time"

	"github.com/agilira/arbor"
	"github.com/gin-gonic/gin"
)

// ValueRequest carries a value for PUT and POST on /tree.
type ValueRequest struct {
	Value interface{} `json:"value"`
}

// RestoreRequest names the savepoint to restore; empty means current.
type RestoreRequest struct {
	Savepoint string `json:"savepoint"`
}

// ArchiveRequest carries an RFC 3339 cutoff.
type ArchiveRequest struct {
	Cutoff string `json:"cutoff" binding:"required"`
}

// SourceRequest names the subtree copied into staged; empty means running.
type SourceRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "server_id": s.manager.ServerID()})
}

func (s *Server) handleRead(c *gin.Context) {
	path := treePath(c)
	value, err := s.manager.Read(path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "value": value})
}

func (s *Server) handleWrite(c *gin.Context) {
	var req ValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	path := treePath(c)
	if err := s.manager.Write(path, req.Value); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (s *Server) handleCreate(c *gin.Context) {
	var req ValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	path := treePath(c)
	node, err := s.manager.Create(path, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": arbor.PathOf(node)})
}

func (s *Server) handleRemove(c *gin.Context) {
	if err := s.manager.Remove(treePath(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListSaved(c *gin.Context) {
	names := s.manager.ListSaved()
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": names})
}

func (s *Server) handleSaveRunning(c *gin.Context) {
	path, err := s.manager.SaveRunning(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": path})
}

func (s *Server) handleRestoreRunning(c *gin.Context) {
	var req RestoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}
	if err := s.manager.RestoreRunning(c.Request.Context(), req.Savepoint); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restored": req.Savepoint})
}

func (s *Server) handleArchive(c *gin.Context) {
	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	cutoff, err := time.Parse(time.RFC3339, req.Cutoff)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cutoff", "details": err.Error()})
		return
	}
	names, err := s.manager.ArchiveSaved(c.Request.Context(), cutoff)
	if err != nil {
		respondError(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"archived": names})
}

func (s *Server) handleSaveStaged(c *gin.Context) {
	if err := s.manager.SaveStaged(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": arbor.JoinPath(arbor.PathSaved, arbor.StagedSlot)})
}

func (s *Server) handleRestoreStaged(c *gin.Context) {
	if err := s.manager.RestoreStaged(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": arbor.PathStaged})
}

func (s *Server) handleDeployStaged(c *gin.Context) {
	if err := s.manager.DeployStaged(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": arbor.PathRunning})
}

func (s *Server) handleSaveToStaged(c *gin.Context) {
	var req SourceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}
	if err := s.manager.SaveToStaged(c.Request.Context(), req.Source); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": arbor.PathStaged})
}
