package choicetype

import "testing"

func TestCountMeetsSpecMinimum(t *testing.T) {
	n, err := Count()
	if err != nil {
		t.Fatal(err)
	}
	if n < 187 {
		t.Fatalf("got %d mappings, spec requires at least 187", n)
	}
}

func TestFieldForValueQuantity(t *testing.T) {
	field, ok, err := FieldFor("value", "Quantity")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || field != "valueQuantity" {
		t.Fatalf("got field=%q ok=%v", field, ok)
	}
}

func TestFieldForUnknownCombination(t *testing.T) {
	_, ok, err := FieldFor("value", "NoSuchType")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false")
	}
}

func TestTypeOfFieldRoundTrips(t *testing.T) {
	m, ok, err := TypeOfField("onsetDateTime")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || m.Base != "onset" || m.FHIRType != "dateTime" {
		t.Fatalf("got %+v ok=%v", m, ok)
	}
}

func TestBasesCoverRequiredFields(t *testing.T) {
	bases, err := Bases()
	if err != nil {
		t.Fatal(err)
	}
	required := []string{"value", "onset", "effective", "abatement", "deceased", "medication", "dose"}
	have := make(map[string]bool, len(bases))
	for _, b := range bases {
		have[b] = true
	}
	for _, r := range required {
		if !have[r] {
			t.Errorf("missing required base %q", r)
		}
	}
}
