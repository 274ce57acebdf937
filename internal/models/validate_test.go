package models_test

import (
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestValidate_Product(t *testing.T) {
	valid := models.Product{Name: "Sneaker", Price: 40, Category: "Shoes", DiscountPercent: intPtr(15)}
	assert.NoError(t, models.Validate(valid))

	negative := valid
	negative.Price = -1
	err := models.Validate(negative)
	require.Error(t, err)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "Price")

	overDiscount := valid
	overDiscount.DiscountPercent = intPtr(101)
	assert.Error(t, models.Validate(overDiscount))

	noDiscount := valid
	noDiscount.DiscountPercent = nil
	assert.NoError(t, models.Validate(noDiscount))
}

func TestValidate_CartLineQuantity(t *testing.T) {
	line := models.CartLine{UserID: "u1", ProductID: "p1", Quantity: 0}
	err := models.Validate(line)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Quantity")

	line.Quantity = 1
	assert.NoError(t, models.Validate(line))
}

func TestValidate_SignUpConfirmation(t *testing.T) {
	form := models.SignUp{
		Profile: models.UserProfile{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		Secret:  "secret123",
		Confirm: "secret124",
	}
	err := models.Validate(form)
	require.Error(t, err)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "validation failed: passwords do not match", verr.Description())

	form.Confirm = form.Secret
	assert.NoError(t, models.Validate(form))
}

func TestValidate_Credentials(t *testing.T) {
	assert.Error(t, models.Validate(models.Credentials{Email: "not-an-email", Secret: "secret123"}))
	assert.Error(t, models.Validate(models.Credentials{Email: "a@b.io", Secret: "123"}))
	assert.NoError(t, models.Validate(models.Credentials{Email: "a@b.io", Secret: "secret123"}))
}
