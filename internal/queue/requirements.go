package queue

import "queuebot/internal/model"

// requiredOverrides maps a queue type to the fields an operator must supply
// to complete it by hand. Types not listed need none.
var requiredOverrides = map[model.QueueType][]model.OverrideField{
	model.QueueTypeRecharge:       {model.FieldBalance},
	model.QueueTypeRedeem:         {model.FieldBalance},
	model.QueueTypeAddUser:        {model.FieldUsername, model.FieldPassword},
	model.QueueTypeCreate:         {model.FieldUsername, model.FieldPassword},
	model.QueueTypeChangePassword: {model.FieldPassword},
}

// RequiredFields returns the override fields needed to complete a record of type t.
func RequiredFields(t model.QueueType) []model.OverrideField {
	fields := requiredOverrides[t]
	out := make([]model.OverrideField, len(fields))
	copy(out, fields)
	return out
}

// MissingFields returns the required fields of t that are blank in o.
func MissingFields(t model.QueueType, o model.Overrides) []model.OverrideField {
	var missing []model.OverrideField
	for _, f := range requiredOverrides[t] {
		if o.Value(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// completeRequest builds the action body for completing a record of type t.
// Only the fields the type requires are sent; for types without a table
// entry every non-blank override is passed through for the backend to judge.
func completeRequest(id int64, t model.QueueType, o model.Overrides) model.ActionRequest {
	req := model.ActionRequest{TxnID: id, Type: model.ActionComplete}

	fields, known := requiredOverrides[t]
	if !known {
		fields = []model.OverrideField{model.FieldUsername, model.FieldPassword, model.FieldBalance}
	}

	for _, f := range fields {
		switch f {
		case model.FieldUsername:
			req.NewUsername = o.Value(f)
		case model.FieldPassword:
			req.NewPassword = o.Value(f)
		case model.FieldBalance:
			req.NewBalance = o.Value(f)
		}
	}
	return req
}
