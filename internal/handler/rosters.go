package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/report"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/roster"
)

// newCalendar 为一次排班调用构建日历服务。
// 节假日先查 redis 缓存，未命中再请求外部服务；
// Calendar 自身还会在本次调用内对每个月做一次记忆化。
func (h *Handler) newCalendar() *calendar.Calendar {
	provider := calendar.NewRedisCache(
		h.redisClient,
		time.Duration(h.config.Holiday.CacheTTL)*time.Second,
		calendar.NewHTTPProvider(h.config.Holiday.APIBaseURL, time.Duration(h.config.Holiday.RequestTimeout)*time.Second),
	)
	return calendar.New(provider, h.config.Scheduler.BusinessDaySearchLimit)
}

// GenerateRoster 生成目标月份的日度排班报表
func (h *Handler) GenerateRoster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year       int    `json:"year" validate:"required,min=2000,max=2999"`
		Month      int    `json:"month" validate:"required,min=1,max=12"`
		Department string `json:"department"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	positions, err := h.repository.GetPositionsByKind(domain.PositionKindNormal)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	staff, err := h.repository.GetAllStaffMembers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if req.Department != "" {
		positions = filterPositionsByDepartment(positions, req.Department)
		staff = filterStaffByDepartment(staff, req.Department)
	}

	params := &roster.Parameters{
		MaxDayRetries: h.config.Scheduler.MaxDayRetries,
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	engine, err := roster.New(params, h.newCalendar(), rng, positions, staff)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	plans, err := engine.PlanMonth(r.Context(), req.Year, time.Month(req.Month))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	f := report.NewWorkbook()
	sheet := report.SheetName(req.Year, req.Month)
	if err := report.WriteMonth(f, sheet, positions, plans); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	report.RemoveDefaultSheet(f)

	h.publishRosterNotification("roster", sheet, sheet, 1)
	h.writeWorkbook(w, r, fmt.Sprintf("roster-%s.xlsx", sheet), f)
}

// GenerateRotationRoster 在给定月份区间内生成夜间/待命轮值报表，
// 并把轮值结果追加持久化到员工的特殊分配日期中
func (h *Handler) GenerateRotationRoster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartYear  int `json:"startYear" validate:"required,min=2000,max=2999"`
		StartMonth int `json:"startMonth" validate:"required,min=1,max=12"`
		EndYear    int `json:"endYear" validate:"required,min=2000,max=2999"`
		EndMonth   int `json:"endMonth" validate:"required,min=1,max=12"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	positions, err := h.repository.GetRotationPositions()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	staff, err := h.repository.GetAllStaffMembers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	params := &roster.RotationParameters{
		MinExperience:   h.config.Rotation.MinExperience,
		MaxRetries:      h.config.Rotation.MaxRetries,
		SpacingDays:     h.config.Rotation.SpacingDays,
		FragileDept:     h.config.Rotation.FragileDept,
		DutyDepartments: h.config.Rotation.DutyDepartments,
		DeptWeights:     h.config.Rotation.DeptWeights,
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	engine, err := roster.NewRotation(params, h.newCalendar(), rng, positions, staff)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	result, err := engine.Run(r.Context(), req.StartYear, time.Month(req.StartMonth), req.EndYear, time.Month(req.EndMonth))
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	// 轮值结果要写回员工数据，后续的日度排班才能把它当作特殊分配处理
	for _, assignment := range result.Assignments {
		if err := h.repository.AppendSpecialAssignment(assignment); err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	f := report.NewWorkbook()
	for _, month := range result.Months {
		sheet := report.SheetName(month.Year, int(month.Month))
		if err := report.WriteMonth(f, sheet, positions, month.Plans); err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}
	report.RemoveDefaultSheet(f)

	startSheet := report.SheetName(req.StartYear, req.StartMonth)
	endSheet := report.SheetName(req.EndYear, req.EndMonth)
	h.publishRosterNotification("rotation", startSheet, endSheet, len(result.Months))
	h.writeWorkbook(w, r, fmt.Sprintf("rotation-%s_%s.xlsx", startSheet, endSheet), f)
}

// publishRosterNotification 向邮件队列发布一条报表生成完成的通知。
// 通知只是辅助功能，发布失败不影响报表返回，只记录日志。
func (h *Handler) publishRosterNotification(kind string, startMonth string, endMonth string, sheetCount int) {
	message := domain.MailMessage{
		Type: "roster_generated",
		To:   h.config.Notify.Email,
		Data: domain.RosterGeneratedMailData{
			Kind:        kind,
			StartMonth:  startMonth,
			EndMonth:    endMonth,
			SheetCount:  sheetCount,
			GeneratedAt: time.Now().Format(time.RFC3339),
		},
	}

	body, err := json.Marshal(message)
	if err != nil {
		slog.Error("无法序列化邮件信息", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	err = h.mailChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		slog.Error("无法发布报表通知", "error", err)
	}
}

func filterPositionsByDepartment(positions []*domain.Position, department string) []*domain.Position {
	var filtered []*domain.Position
	for _, pos := range positions {
		// 没有科室标签的岗位对所有科室可见
		if len(pos.Departments) == 0 {
			filtered = append(filtered, pos)
			continue
		}
		for _, dept := range pos.Departments {
			if dept == department {
				filtered = append(filtered, pos)
				break
			}
		}
	}
	return filtered
}

func filterStaffByDepartment(staff []*domain.StaffMember, department string) []*domain.StaffMember {
	var filtered []*domain.StaffMember
	for _, st := range staff {
		if st.InDepartment(department) {
			filtered = append(filtered, st)
		}
	}
	return filtered
}
