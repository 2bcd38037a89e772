package intent

import "testing"

func TestClassifyFormRequest(t *testing.T) {
	r := Classify("cho tôi xin mẫu đơn xin nghỉ phép", false)
	if r.Intent != IntentFormRequest {
		t.Fatalf("expected form_request, got %s", r.Intent)
	}
}

func TestClassifyFillVerbSetsSubSignal(t *testing.T) {
	r := Classify("điền sẵn mẫu đơn xin nghỉ phép giúp tôi", false)
	if !r.WantsFillableForm {
		t.Fatalf("expected wants_fillable_form to be set")
	}
}

func TestClassifyImageAttachmentForcesImageQuery(t *testing.T) {
	r := Classify("đây là cái gì", true)
	if r.Intent != IntentImageQuery {
		t.Fatalf("expected image_query, got %s", r.Intent)
	}
}

func TestClassifyProcedureGuide(t *testing.T) {
	r := Classify("hướng dẫn thủ tục đăng ký học phần", false)
	if r.Intent != IntentProcedureGuide {
		t.Fatalf("expected procedure_guide, got %s", r.Intent)
	}
}

func TestClassifyContactInfo(t *testing.T) {
	r := Classify("số điện thoại liên hệ phòng đào tạo là gì", false)
	if r.Intent != IntentContactInfo {
		t.Fatalf("expected contact_info, got %s", r.Intent)
	}
}

func TestClassifyNavigation(t *testing.T) {
	r := Classify("phòng đào tạo ở đâu", false)
	if r.Intent != IntentNavigation {
		t.Fatalf("expected navigation, got %s", r.Intent)
	}
}

func TestClassifyNoMatchFallsBackToGeneralAnswer(t *testing.T) {
	r := Classify("học phí kỳ này là bao nhiêu", false)
	if r.Intent != IntentGeneralAnswer {
		t.Fatalf("expected general_answer, got %s", r.Intent)
	}
}

func TestClassifyAmbiguousShortQueryYieldsClarification(t *testing.T) {
	r := Classify("mẫu đơn ở đâu", false)
	if r.Intent != IntentClarificationNeeded {
		t.Fatalf("expected clarification_needed for a short query matching two categories, got %s", r.Intent)
	}
}
