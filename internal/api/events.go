package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starosta-app/starosta-back/internal/authz"
	"github.com/starosta-app/starosta-back/internal/db"
	"github.com/starosta-app/starosta-back/internal/excel"
	"github.com/starosta-app/starosta-back/internal/httpx"
	"github.com/starosta-app/starosta-back/internal/ics"
	"github.com/starosta-app/starosta-back/internal/models"
	"github.com/starosta-app/starosta-back/internal/recurrence"
)

const maxImportSize = 5 << 20

type ImportResponse struct {
	Created int      `json:"created"`
	Skipped []string `json:"skipped"`
}

// ListEvents godoc
// @Summary      List upcoming event occurrences of a group
// @Description  Recurring events are expanded weekly. Past occurrences are dropped and the rest sorted by date and time.
// @Tags         events
// @Produce      json
// @Param        pk   path      int  true  "Group ID"
// @Success      200  {object}  httpx.Envelope{data=[]EventResponse}
// @Failure      403  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      404  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/groups/{pk}/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	var resp []EventResponse
	err := h.withGroup(c, authz.Read, func(tx *db.Store, group *models.Group) error {
		events, err := tx.ListActiveEvents(c.Request.Context(), group.ID)
		if err != nil {
			return err
		}
		resp = toEventResponses(recurrence.Expand(events, h.today()), group)
		return nil
	})
	if err != nil {
		h.fail(c, err, "Group")
		return
	}
	httpx.OK(c, resp)
}

// CreateEvent godoc
// @Summary      Create an event in a group
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        pk    path      int                 true  "Group ID"
// @Param        body  body      EventCreateRequest  true  "Event"
// @Success      200   {object}  httpx.Envelope{data=EventResponse}
// @Failure      400   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      403   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      404   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/groups/{pk}/events [post]
func (h *Handler) CreateEvent(c *gin.Context) {
	var resp EventResponse
	err := h.withGroup(c, authz.Write, func(tx *db.Store, group *models.Group) error {
		var req EventCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return &validationError{messages: httpx.ValidationMessages(err)}
		}
		event, errs := req.toEvent(group.ID)
		if len(errs) > 0 {
			return &validationError{messages: errs}
		}
		if err := tx.CreateEvent(c.Request.Context(), event); err != nil {
			return err
		}
		resp = toEventResponse(event, toGroupResponse(group))
		return nil
	})
	if err != nil {
		h.respondErr(c, err, "Group")
		return
	}
	httpx.OK(c, resp)
}

// GetEvent godoc
// @Summary      Get one event of a group
// @Tags         events
// @Produce      json
// @Param        pk        path      int  true  "Group ID"
// @Param        event_id  path      int  true  "Event ID"
// @Success      200       {object}  httpx.Envelope{data=EventResponse}
// @Failure      403       {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      404       {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/groups/{pk}/events/{event_id} [get]
func (h *Handler) GetEvent(c *gin.Context) {
	var resp EventResponse
	err := h.withGroup(c, authz.Read, func(tx *db.Store, group *models.Group) error {
		event, err := h.loadEvent(c, tx, group)
		if err != nil {
			return err
		}
		resp = toEventResponse(event, toGroupResponse(group))
		return nil
	})
	if err != nil {
		h.fail(c, err, "Group")
		return
	}
	httpx.OK(c, resp)
}

// UpdateEvent godoc
// @Summary      Partially update an event
// @Description  "recurring_until": null clears the end date. A finished event that is moved to today or later is switched back on unless "is_active" is sent.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        pk        path      int                 true  "Group ID"
// @Param        event_id  path      int                 true  "Event ID"
// @Param        body      body      EventUpdateRequest  true  "Changes"
// @Success      200       {object}  httpx.Envelope{data=EventResponse}
// @Failure      400       {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      403       {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      404       {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/groups/{pk}/events/{event_id} [patch]
func (h *Handler) UpdateEvent(c *gin.Context) {
	var resp EventResponse
	err := h.withGroup(c, authz.Write, func(tx *db.Store, group *models.Group) error {
		event, err := h.loadEvent(c, tx, group)
		if err != nil {
			return err
		}
		var req EventUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return &validationError{messages: httpx.ValidationMessages(err)}
		}
		today := h.today()
		wasFinished := models.DateOnly(event.LastDate()).Before(today)
		if errs := req.apply(event); len(errs) > 0 {
			return &validationError{messages: errs}
		}
		req.reactivate(event, wasFinished, today)
		if err := tx.SaveEvent(c.Request.Context(), event); err != nil {
			return err
		}
		resp = toEventResponse(event, toGroupResponse(group))
		return nil
	})
	if err != nil {
		h.respondErr(c, err, "Group")
		return
	}
	httpx.OK(c, resp)
}

// DeleteEvent godoc
// @Summary      Delete an event
// @Tags         events
// @Param        pk        path  int  true  "Group ID"
// @Param        event_id  path  int  true  "Event ID"
// @Success      204
// @Failure      403  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      404  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/groups/{pk}/events/{event_id} [delete]
func (h *Handler) DeleteEvent(c *gin.Context) {
	err := h.withGroup(c, authz.Write, func(tx *db.Store, group *models.Group) error {
		event, err := h.loadEvent(c, tx, group)
		if err != nil {
			return err
		}
		return tx.DeleteEvent(c.Request.Context(), event)
	})
	if err != nil {
		h.fail(c, err, "Group")
		return
	}
	httpx.Respond(c, http.StatusNoContent, nil, "Event deleted")
}

func (h *Handler) loadEvent(c *gin.Context, tx *db.Store, group *models.Group) (*models.Event, error) {
	eventID, ok := idParam(c, "event_id")
	if !ok {
		return nil, &missingError{what: "Event"}
	}
	event, err := tx.GetEvent(c.Request.Context(), group.ID, eventID)
	if err != nil {
		return nil, missing("Event", err)
	}
	return event, nil
}

// ImportEvents godoc
// @Summary      Import events from a timetable spreadsheet
// @Description  Rows of the first sheet are Name, URL, Date, Time and an optional Recurring until date. Bad rows are skipped and reported.
// @Tags         events
// @Accept       multipart/form-data
// @Produce      json
// @Param        pk    path      int   true  "Group ID"
// @Param        file  formData  file  true  "xlsx workbook"
// @Success      201   {object}  httpx.Envelope{data=ImportResponse}
// @Failure      400   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      403   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      404   {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/groups/{pk}/events/import [post]
func (h *Handler) ImportEvents(c *gin.Context) {
	var resp ImportResponse
	err := h.withGroup(c, authz.Write, func(tx *db.Store, group *models.Group) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return &validationError{messages: []string{"File is required."}}
		}
		if fh.Size > maxImportSize {
			return &validationError{messages: []string{"File is too large."}}
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := excel.NewParser(h.Log).Parse(f, group.ID)
		if err != nil {
			h.Log.Warn("timetable import failed", zap.Uint("group_id", group.ID), zap.Error(err))
			return &validationError{messages: []string{"Upload a valid xlsx workbook."}}
		}
		if len(res.Events) > 0 {
			if err := tx.CreateEvents(c.Request.Context(), res.Events); err != nil {
				return err
			}
		}
		resp = ImportResponse{Created: len(res.Events), Skipped: res.Skipped}
		if resp.Skipped == nil {
			resp.Skipped = []string{}
		}
		return nil
	})
	if err != nil {
		h.respondErr(c, err, "Group")
		return
	}
	httpx.Respond(c, http.StatusCreated, resp, fmt.Sprintf("Imported %d events", resp.Created))
}

// Calendar godoc
// @Summary      Export upcoming occurrences as iCalendar
// @Tags         events
// @Produce      text/calendar
// @Param        pk   path  int  true  "Group ID"
// @Success      200  {string}  string
// @Failure      403  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Failure      404  {object}  httpx.Envelope{data=httpx.ErrorData}
// @Security     BearerAuth
// @Router       /user/groups/{pk}/calendar [get]
func (h *Handler) Calendar(c *gin.Context) {
	var buf bytes.Buffer
	err := h.withGroup(c, authz.Read, func(tx *db.Store, group *models.Group) error {
		events, err := tx.ListActiveEvents(c.Request.Context(), group.ID)
		if err != nil {
			return err
		}
		occ := recurrence.Expand(events, h.today())
		return ics.Write(&buf, group.Name, occ, h.Location, h.now())
	})
	if err != nil {
		h.fail(c, err, "Group")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}
