package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fundbridge/internal/domain"
	"fundbridge/internal/service"
)

type signupRequest struct {
	FullName     string `json:"full_name"`
	MobileNumber string `json:"mobile_number"`
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	DOB          string `json:"dob"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
	Occupation   string `json:"occupation"`
	UserType     string `json:"user_type"`
	AccountType  string `json:"account_type"`
	NGOID        string `json:"ngo_id"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and password are required."})
		return
	}

	var dob *time.Time
	if req.DOB != "" {
		if parsed, err := time.Parse("2006-01-02", req.DOB); err == nil {
			dob = &parsed
		}
	}

	err := s.auth.Signup(c.Request.Context(), service.SignupRequest{
		FullName:     req.FullName,
		Email:        req.Email,
		Password:     req.Password,
		UserType:     req.UserType,
		AccountType:  req.AccountType,
		MobileNumber: req.MobileNumber,
		NGOID:        req.NGOID,
		DOB:          dob,
		Address:      req.Address,
		City:         req.City,
		Pincode:      req.Pincode,
		Country:      req.Country,
		Occupation:   req.Occupation,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Email already registered."})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Signup successful!"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and password are required."})
		return
	}

	user, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Invalid email!"})
		case errors.Is(err, domain.ErrValidation):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
		default:
			respondError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    gin.H{"email": user.Email, "user_type": user.UserType},
	})
}
