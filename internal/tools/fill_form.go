package tools

import (
	"context"
	"fmt"
	"strings"

	"university-query-engine/internal/domain"
)

// ProfileFieldSource resolves a user's profile fields for form pre-filling.
// The Personalization Service (§4.10) implements this.
type ProfileFieldSource interface {
	Fields(ctx context.Context, userID string) (map[string]string, error)
}

type formTemplate struct {
	markdown string
	fields   []string
}

var formTemplates = map[string]formTemplate{
	"leave_request": {
		fields: []string{"full_name", "student_id", "class", "from_date", "to_date", "reason"},
		markdown: `# ĐƠN XIN NGHỈ PHÉP

Họ và tên: {full_name}
Mã số sinh viên: {student_id}
Lớp: {class}

Kính gửi: Phòng Đào tạo

Tôi làm đơn này xin phép nghỉ học từ ngày {from_date} đến ngày {to_date}.

Lý do: {reason}

Tôi xin cam đoan sẽ hoàn thành các nội dung học tập đã bỏ lỡ.
`,
	},
	"card_replacement": {
		fields: []string{"full_name", "student_id", "class", "reason"},
		markdown: `# ĐƠN XIN CẤP LẠI THẺ SINH VIÊN

Họ và tên: {full_name}
Mã số sinh viên: {student_id}
Lớp: {class}

Lý do cấp lại: {reason}

Kính mong nhà trường xem xét và cấp lại thẻ sinh viên cho tôi.
`,
	},
	"certificate_request": {
		fields: []string{"full_name", "student_id", "class", "faculty", "purpose"},
		markdown: `# ĐƠN XIN CẤP GIẤY CHỨNG NHẬN SINH VIÊN

Họ và tên: {full_name}
Mã số sinh viên: {student_id}
Lớp: {class}
Khoa: {faculty}

Mục đích sử dụng: {purpose}

Kính mong nhà trường xác nhận và cấp giấy chứng nhận cho tôi.
`,
	},
	"exam_review": {
		fields: []string{"full_name", "student_id", "course_name", "exam_date", "reason"},
		markdown: `# ĐƠN XIN PHÚC KHẢO BÀI THI

Họ và tên: {full_name}
Mã số sinh viên: {student_id}
Học phần: {course_name}
Ngày thi: {exam_date}

Lý do xin phúc khảo: {reason}
`,
	},
	"general_request": {
		fields: []string{"full_name", "student_id", "request_content"},
		markdown: `# ĐƠN ĐỀ NGHỊ

Họ và tên: {full_name}
Mã số sinh viên: {student_id}

Nội dung đề nghị: {request_content}
`,
	},
}

// FillForm selects a named Markdown template, pre-fills its placeholders
// from the user's profile and any additional info supplied in the call,
// and reports which placeholders were left blank.
type FillForm struct {
	Profiles ProfileFieldSource
}

func (h *FillForm) ToolType() domain.ToolType { return domain.ToolFillForm }

func (h *FillForm) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	formType := argString(args, "form_type")
	tmpl, ok := formTemplates[formType]
	if !ok {
		return nil, fmt.Errorf("fill_form: unknown form_type %q", formType)
	}

	values := map[string]string{}
	if h.Profiles != nil {
		if userID := argString(args, "user_context"); userID != "" {
			if fields, err := h.Profiles.Fields(ctx, userID); err == nil {
				for k, v := range fields {
					values[k] = v
				}
			}
		}
	}
	if extra, ok := args["additional_info"].(map[string]any); ok {
		for k, v := range extra {
			if s, ok := v.(string); ok {
				values[k] = s
			}
		}
	}

	markdown := tmpl.markdown
	var preFilled, missing []string
	for _, field := range tmpl.fields {
		placeholder := "{" + field + "}"
		value, has := values[field]
		if has && value != "" && value != placeholder {
			preFilled = append(preFilled, field)
		} else {
			missing = append(missing, field)
			value = placeholder
		}
		markdown = strings.ReplaceAll(markdown, placeholder, value)
	}

	return map[string]any{
		"form_markdown":    markdown,
		"form_type":        formType,
		"pre_filled_fields": preFilled,
		"missing_fields":    missing,
	}, nil
}
