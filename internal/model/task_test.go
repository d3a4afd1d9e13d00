package model

import "testing"

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"low", Low, false},
		{"MEDIUM", Medium, false},
		{" High ", High, false},
		{"urgent", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParsePriority(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPriorityNext(t *testing.T) {
	if Low.Next() != Medium || Medium.Next() != High || High.Next() != Low {
		t.Fatal("priority cycle broken")
	}
	if Priority("whatever").Next() != Low {
		t.Error("unknown label should cycle to Low")
	}
}

func TestValidateDeadline(t *testing.T) {
	for _, ok := range []string{"", "2024-06-01", "2030-12-31"} {
		if err := ValidateDeadline(ok); err != nil {
			t.Errorf("ValidateDeadline(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"tomorrow", "2024-13-01", "2024/06/01", "01-06-2024"} {
		if err := ValidateDeadline(bad); err == nil {
			t.Errorf("ValidateDeadline(%q) accepted", bad)
		}
	}
}

func TestPatchApply(t *testing.T) {
	title := "Write final report"
	empty := ""
	task := Task{ID: 1, Title: "Write report", Priority: High, Deadline: "2024-06-01"}

	changed := Patch{Title: &title}.Apply(&task)
	if !changed || task.Title != title {
		t.Fatalf("title not applied: %+v", task)
	}
	if task.Priority != High || task.Deadline != "2024-06-01" {
		t.Errorf("untouched fields changed: %+v", task)
	}

	if (Patch{Title: &title}).Apply(&task) {
		t.Error("same value reported as change")
	}

	if !(Patch{Deadline: &empty}).Apply(&task) || task.Deadline != "" {
		t.Errorf("deadline not cleared: %+v", task)
	}

	if !(Patch{}).Empty() {
		t.Error("zero patch should be empty")
	}
}

func TestTaskCreated(t *testing.T) {
	task := Task{CreatedAt: "2024-05-20 09:30:00"}
	ts, ok := task.Created()
	if !ok || ts.Hour() != 9 || ts.Minute() != 30 {
		t.Fatalf("Created() = %v, %v", ts, ok)
	}
	if _, ok := (Task{CreatedAt: "garbage"}).Created(); ok {
		t.Error("garbage timestamp parsed")
	}
	if (Task{Completed: true}).Status() != "done" || (Task{}).Status() != "pending" {
		t.Error("Status labels wrong")
	}
}
