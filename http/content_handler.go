package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/authorizer"
)

// ContentHandler serves a site's content document and media list. The same
// GET endpoint serves both the rendered public site and the editor; the
// request classifier decides which checks apply.
type ContentHandler struct {
	errors ErrorHandler
	log    *zap.Logger
	sites  sitehub.SiteService
	authz  *authorizer.Authorizer
	media  sitehub.MediaService
}

// NewContentHandler returns a new instance of ContentHandler.
func NewContentHandler(log *zap.Logger, sites sitehub.SiteService, authz *authorizer.Authorizer, media sitehub.MediaService) *ContentHandler {
	return &ContentHandler{
		log:   log,
		sites: sites,
		authz: authz,
		media: media,
	}
}

func siteIDFromRequest(r *http.Request) string {
	if id := r.URL.Query().Get("siteId"); id != "" {
		return id
	}
	return chi.URLParam(r, "siteID")
}

// handleGetClientData is the HTTP handler for GET /api/client-data.
func (h *ContentHandler) handleGetClientData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := siteIDFromRequest(r)

	class := authorizer.PublicRead
	if Classify(r) == Admin {
		class = authorizer.AdminRead
	}
	if err := h.authz.Authorize(ctx, credentialFromRequest(r), siteID, class); err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}

	// Only visitor reads degrade to the fallback snapshot: an editor load
	// during an outage must fail rather than serve content that could be
	// saved back over the real document once the store recovers.
	var content *sitehub.ClientContent
	var err error
	if class == authorizer.PublicRead {
		content, err = h.sites.PublishedClientData(ctx, siteID)
	} else {
		content, err = h.sites.ClientData(ctx, siteID)
	}
	if err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}
	_ = encodeResponse(ctx, w, http.StatusOK, content)
}

// handleSaveClientData is the HTTP handler for POST /api/client-data.
// Saves are always AdminWrite no matter how the request classifies.
func (h *ContentHandler) handleSaveClientData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := siteIDFromRequest(r)

	if err := h.authz.Authorize(ctx, credentialFromRequest(r), siteID, authorizer.AdminWrite); err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}

	var content sitehub.ClientContent
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		h.errors.HandleHTTPError(ctx, &sitehub.Error{
			Code: sitehub.EInvalid,
			Msg:  "malformed content document",
			Err:  err,
		}, w)
		return
	}

	if err := h.sites.SaveClientData(ctx, siteID, &content); err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}
	_ = encodeResponse(ctx, w, http.StatusOK, content)
}

// handleAddMedia is the HTTP handler for POST /api/media. The binary upload
// already happened at the media host; this records the result on the site's
// media list.
func (h *ContentHandler) handleAddMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := siteIDFromRequest(r)

	if err := h.authz.Authorize(ctx, credentialFromRequest(r), siteID, authorizer.AdminWrite); err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}

	var item sitehub.MediaItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		h.errors.HandleHTTPError(ctx, &sitehub.Error{
			Code: sitehub.EInvalid,
			Msg:  "malformed media item",
			Err:  err,
		}, w)
		return
	}

	list, err := h.sites.AddMedia(ctx, siteID, item)
	if err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}
	_ = encodeResponse(ctx, w, http.StatusCreated, list)
}

// handleDeleteMedia is the HTTP handler for DELETE /api/media/{publicID}.
// The asset is removed at the host first; a host failure aborts the call and
// leaves the list entry in place so the dashboard still shows the asset.
func (h *ContentHandler) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := siteIDFromRequest(r)
	publicID := chi.URLParam(r, "publicID")

	if err := h.authz.Authorize(ctx, credentialFromRequest(r), siteID, authorizer.AdminWrite); err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}

	if h.media != nil {
		if err := h.media.Delete(ctx, publicID); err != nil {
			h.errors.HandleHTTPError(ctx, err, w)
			return
		}
	}

	if err := h.sites.RemoveMedia(ctx, siteID, publicID); err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
