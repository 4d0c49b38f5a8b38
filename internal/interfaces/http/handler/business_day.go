package handler

import (
	appledger "github.com/clinicpos/backend/internal/application/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
)

// BusinessDayHandler handles the working date and the closure lifecycle
type BusinessDayHandler struct {
	BaseHandler
	workingDate *appledger.WorkingDateStore
	closure     *appledger.ClosureService
	aggregates  *appledger.AggregateRecomputer
}

// NewBusinessDayHandler creates a new BusinessDayHandler
func NewBusinessDayHandler(
	workingDate *appledger.WorkingDateStore,
	closure *appledger.ClosureService,
	aggregates *appledger.AggregateRecomputer,
) *BusinessDayHandler {
	return &BusinessDayHandler{
		workingDate: workingDate,
		closure:     closure,
		aggregates:  aggregates,
	}
}

// GetWorkingDate godoc
// @ID           getWorkingDate
//
//	@Summary		Get the working date
//	@Description	Returns the business date new postings land on
//	@Tags			business-day
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=WorkingDateResponse}
//	@Failure		401	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/business-day [get]
func (h *BusinessDayHandler) GetWorkingDate(c *gin.Context) {
	date, err := h.workingDate.Current(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, WorkingDateResponse{WorkingDate: date})
}

// GetDayState godoc
// @ID           getDayState
//
//	@Summary		Get the state of a business date
//	@Description	OPEN, CLOSED, REOPENED, FUTURE or UNRECORDED, with the closure record when there is one
//	@Tags			business-day
//	@Produce		json
//	@Param			date	path		string	true	"Business date (YYYY-MM-DD)"
//	@Success		200		{object}	dto.Response{data=DayStateResponse}
//	@Failure		400		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/business-day/{date} [get]
func (h *BusinessDayHandler) GetDayState(c *gin.Context) {
	date, ok := h.dateParam(c, "date")
	if !ok {
		return
	}
	state, err := h.closure.State(c.Request.Context(), date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDayStateResponse(state))
}

// CanPost godoc
// @ID           canPostToDate
//
//	@Summary		Check whether the caller may post to a date
//	@Tags			business-day
//	@Produce		json
//	@Param			date	path		string	true	"Business date (YYYY-MM-DD)"
//	@Success		200		{object}	dto.Response{data=appledger.PostDecision}
//	@Failure		400		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/business-day/{date}/can-post [get]
func (h *BusinessDayHandler) CanPost(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	date, ok := h.dateParam(c, "date")
	if !ok {
		return
	}
	decision, err := h.closure.CanPost(c.Request.Context(), date, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, decision)
}

// Close godoc
// @ID           closeBusinessDay
//
//	@Summary		Close the working date
//	@Description	Closes the working date and advances it to next_date. Repeating the call for a date already closed returns the existing record with advanced=false.
//	@Tags			business-day
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CloseDayRequest	true	"Next working date"
//	@Success		200		{object}	dto.Response{data=CloseDayResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		409		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/business-day/close [post]
func (h *BusinessDayHandler) Close(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CloseDayRequest
	if !h.bindJSON(c, &req) {
		return
	}
	next, err := valueobject.ParseBusinessDate(req.NextDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.closure.Close(c.Request.Context(), appledger.CloseRequest{NextDate: next, Actor: actor})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCloseDayResponse(result))
}

// Reopen godoc
// @ID           reopenBusinessDay
//
//	@Summary		Reopen a closed date
//	@Description	Requires DATE_REOPEN (or the administrator role) and a reason. The working date does not move.
//	@Tags			business-day
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string				true	"Business date (YYYY-MM-DD)"
//	@Param			request	body		ReopenDayRequest	true	"Reason"
//	@Success		200		{object}	dto.Response{data=ClosureRecordResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		403		{object}	dto.Response
//	@Failure		409		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/business-day/{date}/reopen [post]
func (h *BusinessDayHandler) Reopen(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	date, ok := h.dateParam(c, "date")
	if !ok {
		return
	}
	var req ReopenDayRequest
	if !h.bindJSON(c, &req) {
		return
	}

	record, err := h.closure.Reopen(c.Request.Context(), appledger.ReopenRequest{
		Date:   date,
		Actor:  actor,
		Reason: req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toClosureRecordResponse(record))
}

// Reclose godoc
// @ID           recloseBusinessDay
//
//	@Summary		Close a reopened date again
//	@Tags			business-day
//	@Produce		json
//	@Param			date	path		string	true	"Business date (YYYY-MM-DD)"
//	@Success		200		{object}	dto.Response{data=CloseDayResponse}
//	@Failure		403		{object}	dto.Response
//	@Failure		409		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/business-day/{date}/reclose [post]
func (h *BusinessDayHandler) Reclose(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	date, ok := h.dateParam(c, "date")
	if !ok {
		return
	}

	result, err := h.closure.Reclose(c.Request.Context(), appledger.RecloseRequest{Date: date, Actor: actor})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCloseDayResponse(result))
}

// GetAggregate godoc
// @ID           getDailyAggregate
//
//	@Summary		Get the cached totals of a date
//	@Tags			business-day
//	@Produce		json
//	@Param			date	path		string	true	"Business date (YYYY-MM-DD)"
//	@Success		200		{object}	dto.Response{data=AggregateResponse}
//	@Failure		404		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/business-day/{date}/aggregate [get]
func (h *BusinessDayHandler) GetAggregate(c *gin.Context) {
	date, ok := h.dateParam(c, "date")
	if !ok {
		return
	}
	agg, err := h.aggregates.Get(c.Request.Context(), date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if agg == nil {
		h.HandleError(c, shared.NewNotFoundError("No totals have been computed for "+date.String()))
		return
	}
	h.Success(c, toAggregateResponse(agg))
}

// ListClosures godoc
// @ID           listClosures
//
//	@Summary		List closure records in a date range
//	@Tags			business-day
//	@Produce		json
//	@Param			from	query		string	true	"First date (YYYY-MM-DD)"
//	@Param			to		query		string	true	"Last date (YYYY-MM-DD)"
//	@Success		200		{object}	dto.Response{data=[]ClosureRecordResponse}
//	@Failure		400		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/closures [get]
func (h *BusinessDayHandler) ListClosures(c *gin.Context) {
	from, err := valueobject.ParseBusinessDate(c.Query("from"))
	if err != nil {
		h.BadRequest(c, "Query parameter from must be a date in YYYY-MM-DD format")
		return
	}
	to, err := valueobject.ParseBusinessDate(c.Query("to"))
	if err != nil {
		h.BadRequest(c, "Query parameter to must be a date in YYYY-MM-DD format")
		return
	}

	records, err := h.closure.History(c.Request.Context(), from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]*ClosureRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, toClosureRecordResponse(&records[i]))
	}
	h.Success(c, out)
}
