package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/infra/observability"
	"github.com/gfranca/conta-gateway-go/internal/service"

	"go.uber.org/zap"
)

func newAddressBook(t *testing.T, api *mockAddressAPI, postal *mockPostalLookup) *service.AddressBook {
	t.Helper()

	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	sessions := service.NewSessionManager(&mockAuthProvider{}, metrics, logger)
	signIn(t, sessions)

	if postal == nil {
		postal = &mockPostalLookup{err: &domain.ErrNotFound{Resource: "cep"}}
	}
	return service.NewAddressBook(sessions, api, postal, metrics, logger)
}

func validForm() *domain.AddressForm {
	return &domain.AddressForm{
		Label:        domain.AddressLabelCasa,
		CEP:          "87083-325",
		Street:       "Rua das Palmeiras",
		Number:       "123",
		Neighborhood: "Jardim Alvorada",
		City:         "Maringá",
		State:        "PR",
	}
}

func TestAddressCreate_FirstAddressBecomesDefault(t *testing.T) {
	book := newAddressBook(t, &mockAddressAPI{}, nil)

	form := validForm()
	form.IsDefault = false
	list, err := book.Create(context.Background(), form)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(list) != 1 || !list[0].IsDefault {
		t.Errorf("first address must be the default, got %+v", list)
	}
	if def := book.Default(); def == nil || def.ID != list[0].ID {
		t.Errorf("Default() disagrees with the list: %+v", def)
	}
}

func TestAddressCreate_AdoptsServerList(t *testing.T) {
	api := &mockAddressAPI{}
	book := newAddressBook(t, api, nil)

	if _, err := book.Create(context.Background(), validForm()); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := validForm()
	second.Label = domain.AddressLabelTrabalho
	list, err := book.Create(context.Background(), second)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected the server's full list, got %d entries", len(list))
	}
	if got := book.Addresses(); len(got) != 2 {
		t.Errorf("local list not adopted, got %d entries", len(got))
	}
}

func TestAddressCreate_NormalizesCEPAndState(t *testing.T) {
	api := &mockAddressAPI{}
	book := newAddressBook(t, api, nil)

	form := validForm()
	form.CEP = "87083-325"
	form.State = " pr "
	list, err := book.Create(context.Background(), form)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if list[0].CEP != "87083325" {
		t.Errorf("CEP not normalized to digits: %q", list[0].CEP)
	}
	if list[0].State != "PR" {
		t.Errorf("state not uppercased: %q", list[0].State)
	}
}

func TestAddressCreate_Validation(t *testing.T) {
	book := newAddressBook(t, &mockAddressAPI{}, nil)

	cases := []struct {
		name   string
		mutate func(*domain.AddressForm)
	}{
		{"short cep", func(f *domain.AddressForm) { f.CEP = "870" }},
		{"missing street", func(f *domain.AddressForm) { f.Street = "" }},
		{"missing number", func(f *domain.AddressForm) { f.Number = "" }},
		{"missing neighborhood", func(f *domain.AddressForm) { f.Neighborhood = "" }},
		{"missing city", func(f *domain.AddressForm) { f.City = "" }},
		{"bad state", func(f *domain.AddressForm) { f.State = "Paraná" }},
		{"bad label", func(f *domain.AddressForm) { f.Label = "Fazenda" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			tc.mutate(form)

			_, err := book.Create(context.Background(), form)
			var validation *domain.ErrValidation
			if !errors.As(err, &validation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAddressCreate_LimitEnforcedLocally(t *testing.T) {
	api := &mockAddressAPI{}
	book := newAddressBook(t, api, nil)

	for i := 0; i < domain.MaxAddresses; i++ {
		if _, err := book.Create(context.Background(), validForm()); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	_, err := book.Create(context.Background(), validForm())
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected limit rejection, got %v", err)
	}
	if len(book.Addresses()) != domain.MaxAddresses {
		t.Errorf("list grew past the limit: %d", len(book.Addresses()))
	}
}

func TestAddressCreate_FailureLeavesListUntouched(t *testing.T) {
	api := &mockAddressAPI{}
	book := newAddressBook(t, api, nil)
	if _, err := book.Create(context.Background(), validForm()); err != nil {
		t.Fatalf("create: %v", err)
	}

	api.createErr = &domain.ErrServerRejected{Status: 422, Message: "endereço inválido"}
	_, err := book.Create(context.Background(), validForm())
	if err == nil {
		t.Fatal("expected rejection")
	}
	if len(book.Addresses()) != 1 {
		t.Errorf("local list changed on failure: %d entries", len(book.Addresses()))
	}
}

func TestSetDefault_ExactlyOneDefaultAfterAdoption(t *testing.T) {
	api := &mockAddressAPI{}
	book := newAddressBook(t, api, nil)

	first, _ := book.Create(context.Background(), validForm())
	second := validForm()
	second.Label = domain.AddressLabelTrabalho
	list, err := book.Create(context.Background(), second)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	target := list[1].ID
	list, err = book.SetDefault(context.Background(), target)
	if err != nil {
		t.Fatalf("set default: %v", err)
	}

	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
			if a.ID != target {
				t.Errorf("wrong default %q, want %q", a.ID, target)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("expected exactly one default, got %d (first was %q)", defaults, first[0].ID)
	}
}

func TestDelete_AdoptsShorterList(t *testing.T) {
	api := &mockAddressAPI{}
	book := newAddressBook(t, api, nil)

	list, _ := book.Create(context.Background(), validForm())
	got, err := book.Delete(context.Background(), list[0].ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(got) != 0 || len(book.Addresses()) != 0 {
		t.Errorf("expected empty book after delete, got %d", len(got))
	}
}

func TestAutofill_FillsOnlyEmptyFields(t *testing.T) {
	postal := &mockPostalLookup{found: &domain.PostalAddress{
		Street:       "Avenida Colombo",
		Complement:   "até 1399/1400",
		Neighborhood: "Zona 7",
		City:         "Maringá",
		State:        "PR",
	}}
	book := newAddressBook(t, &mockAddressAPI{}, postal)

	form := &domain.AddressForm{
		CEP:    "87020900",
		Street: "Rua digitada pelo usuário",
	}
	cepError, err := book.Autofill(context.Background(), form)
	if err != nil {
		t.Fatalf("autofill: %v", err)
	}
	if cepError != "" {
		t.Errorf("successful lookup must not carry a field error: %q", cepError)
	}

	if form.Street != "Rua digitada pelo usuário" {
		t.Errorf("user-entered street was overwritten: %q", form.Street)
	}
	if form.Neighborhood != "Zona 7" || form.City != "Maringá" || form.State != "PR" {
		t.Errorf("empty fields not filled: %+v", form)
	}
	if form.Complement != "até 1399/1400" {
		t.Errorf("empty complement not filled: %q", form.Complement)
	}
}

func TestAutofill_KeepsUserEnteredComplement(t *testing.T) {
	postal := &mockPostalLookup{found: &domain.PostalAddress{Complement: "até 1399/1400"}}
	book := newAddressBook(t, &mockAddressAPI{}, postal)

	form := &domain.AddressForm{CEP: "87020900", Complement: "Apto 301"}
	if _, err := book.Autofill(context.Background(), form); err != nil {
		t.Fatalf("autofill: %v", err)
	}
	if form.Complement != "Apto 301" {
		t.Errorf("user-entered complement was overwritten: %q", form.Complement)
	}
}

func TestAutofill_PartialCEPDoesNothing(t *testing.T) {
	postal := &mockPostalLookup{found: &domain.PostalAddress{City: "Maringá"}}
	book := newAddressBook(t, &mockAddressAPI{}, postal)

	form := &domain.AddressForm{CEP: "870"}
	cepError, err := book.Autofill(context.Background(), form)
	if err != nil || cepError != "" {
		t.Fatalf("autofill: %v %q", err, cepError)
	}
	if form.City != "" {
		t.Error("partial postal codes must not trigger a lookup")
	}
}

func TestAutofill_MissIsNonFatal(t *testing.T) {
	postal := &mockPostalLookup{err: &domain.ErrNotFound{Resource: "cep", ID: "00000000"}}
	book := newAddressBook(t, &mockAddressAPI{}, postal)

	form := &domain.AddressForm{CEP: "00000000"}
	cepError, err := book.Autofill(context.Background(), form)
	if err != nil {
		t.Fatalf("a lookup miss must leave the form editable, got %v", err)
	}
	if cepError == "" {
		t.Error("a lookup miss must surface a field-scoped message")
	}
}

func TestAutofill_NetworkFailureSurfacesFieldError(t *testing.T) {
	postal := &mockPostalLookup{err: &domain.ErrNetwork{Err: errors.New("timeout")}}
	book := newAddressBook(t, &mockAddressAPI{}, postal)

	form := &domain.AddressForm{CEP: "87020900"}
	cepError, err := book.Autofill(context.Background(), form)
	if err != nil {
		t.Fatalf("a lookup failure must leave the form editable, got %v", err)
	}
	if cepError == "" {
		t.Error("a lookup failure must surface a field-scoped message")
	}
}

func TestAddressMutations_GatedWhileInFlight(t *testing.T) {
	api := &mockAddressAPI{}
	book := newAddressBook(t, api, nil)
	if _, err := book.Create(context.Background(), validForm()); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate an in-flight mutation by hammering concurrently: at most
	// one may run at a time, the rest get ErrBusy or run after.
	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := book.Create(context.Background(), validForm())
			done <- err
		}()
	}

	busy := 0
	for i := 0; i < 2; i++ {
		err := <-done
		var b *domain.ErrBusy
		if errors.As(err, &b) {
			busy++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if total := len(book.Addresses()); total+busy != 3 {
		t.Errorf("mutations lost or duplicated: %d adopted, %d busy", total, busy)
	}
}
