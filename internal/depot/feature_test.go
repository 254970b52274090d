package depot

import "testing"

func TestParseConditionBranchPred(t *testing.T) {
	cond := ParseCondition("Br_true_icmp eq _i32 pred@5")
	if cond.Kind != KindBranch {
		t.Fatalf("kind = %v, want Branch", cond.Kind)
	}
	if cond.EdgeType != 5 {
		t.Fatalf("edge_type = %d, want 5", cond.EdgeType)
	}
	if cond.CondWidth != 5 {
		t.Fatalf("cond_width = %v, want 5 (log2(32))", cond.CondWidth)
	}
	if !cond.CondValue {
		t.Fatalf("cond_value = false, want true")
	}
	if cond.SuccessorCount != 2 {
		t.Fatalf("successor_count = %d, want 2", cond.SuccessorCount)
	}
}

func TestParseConditionBranchSubstring(t *testing.T) {
	cond := ParseCondition("Br_false_call@strcmp ...")
	if cond.Kind != KindBranch {
		t.Fatalf("kind = %v, want Branch", cond.Kind)
	}
	if cond.EdgeType != 42 {
		t.Fatalf("edge_type = %d, want 42 (strcmp wins over call@)", cond.EdgeType)
	}
	if cond.CondValue {
		t.Fatalf("cond_value = true, want false")
	}
}

func TestParseConditionSwitch(t *testing.T) {
	cond := ParseCondition("Switch_i16_8")
	if cond.Kind != KindSwitch {
		t.Fatalf("kind = %v, want Switch", cond.Kind)
	}
	if cond.EdgeType != 48 {
		t.Fatalf("edge_type = %d, want 48", cond.EdgeType)
	}
	if cond.SuccessorCount != 8 {
		t.Fatalf("successor_count = %d, want 8", cond.SuccessorCount)
	}
	if cond.CondWidth != 4 {
		t.Fatalf("cond_width = %v, want 4 (log2(16))", cond.CondWidth)
	}
}

func TestParseConditionUnknown(t *testing.T) {
	cond := ParseCondition("garbage")
	if cond.Kind != KindUnknown {
		t.Fatalf("kind = %v, want Unknown", cond.Kind)
	}
	if cond.SuccessorCount != 0 {
		t.Fatalf("successor_count = %d, want 0", cond.SuccessorCount)
	}
}

func TestLog2ClampsNonPositive(t *testing.T) {
	if log2(0) != 0 {
		t.Fatalf("log2(0) = %v, want 0", log2(0))
	}
	if log2(-4) != 0 {
		t.Fatalf("log2(-4) = %v, want 0", log2(-4))
	}
}
