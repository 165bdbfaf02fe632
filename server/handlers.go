package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"commune.social/core/federation"
	"commune.social/core/federation/vocab"
)

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	user, err := s.db.GetUserByName(r.Context(), name)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	doc, err := federation.UserToApub(user)
	if err != nil {
		s.l.Error("rendering user document", "user", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	federation.WriteApubResponse(w, doc)
}

func (s *Server) GetCommunity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	community, err := s.db.GetCommunityByName(r.Context(), name)
	if err != nil {
		http.Error(w, "community not found", http.StatusNotFound)
		return
	}

	doc, err := federation.CommunityToApub(r.Context(), community, s.db)
	if err != nil {
		s.l.Error("rendering community document", "community", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	federation.WriteApubResponse(w, doc)
}

func (s *Server) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad post id", http.StatusBadRequest)
		return
	}

	post, err := s.db.GetPost(r.Context(), id)
	if err != nil {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}

	apub := federation.ApubPost{Post: post}
	if post.Deleted {
		tombstone, err := apub.ToTombstone()
		if err != nil {
			s.l.Error("rendering post tombstone", "post", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		federation.WriteTombstoneResponse(w, tombstone)
		return
	}

	doc, err := apub.ToApub(r.Context(), s.db)
	if err != nil {
		s.l.Error("rendering post document", "post", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	federation.WriteApubResponse(w, doc)
}

func (s *Server) GetComment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad comment id", http.StatusBadRequest)
		return
	}

	comment, err := s.db.GetComment(r.Context(), id)
	if err != nil {
		http.Error(w, "comment not found", http.StatusNotFound)
		return
	}

	apub := federation.ApubComment{Comment: comment}
	if comment.Deleted {
		tombstone, err := apub.ToTombstone()
		if err != nil {
			s.l.Error("rendering comment tombstone", "comment", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		federation.WriteTombstoneResponse(w, tombstone)
		return
	}

	doc, err := apub.ToApub(r.Context(), s.db)
	if err != nil {
		s.l.Error("rendering comment document", "comment", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	federation.WriteApubResponse(w, doc)
}

// WebFinger serves discovery for local handles: acct:name@hostname maps
// to the actor identifier of a local user or community.
func (s *Server) WebFinger(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")

	acct, ok := strings.CutPrefix(resource, "acct:")
	if !ok {
		http.Error(w, "only acct: resources are supported", http.StatusBadRequest)
		return
	}
	name, domain, ok := strings.Cut(acct, "@")
	if !ok || domain != s.c.Federation.LocalDomain() {
		http.Error(w, "unknown resource", http.StatusNotFound)
		return
	}

	var actorID string
	if user, err := s.db.GetUserByName(r.Context(), name); err == nil {
		actorID = user.ActorID
	} else if community, err := s.db.GetCommunityByName(r.Context(), name); err == nil {
		actorID = community.ActorID
	} else {
		http.Error(w, "unknown resource", http.StatusNotFound)
		return
	}

	res := vocab.WebFingerResponse{
		Subject: fmt.Sprintf("acct:%s@%s", name, domain),
		Aliases: []string{actorID},
		Links: []vocab.WebFingerLink{
			{
				Rel:  "self",
				Type: vocab.ContentType,
				Href: actorID,
			},
		},
	}

	w.Header().Set("Content-Type", "application/jrd+json")
	json.NewEncoder(w).Encode(res)
}
